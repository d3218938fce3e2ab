package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hotelworks/backoffice/internal/events"
	"github.com/hotelworks/backoffice/internal/hash"
	"github.com/hotelworks/backoffice/internal/logging"
	"github.com/hotelworks/backoffice/internal/models"
	"github.com/hotelworks/backoffice/internal/repo"
	"github.com/hotelworks/backoffice/internal/tokens"
)

var (
	ErrConflict = errors.New("username or email already exists")
	// ErrUnauthorized is the single answer for every credential or token
	// failure. The real cause is logged server-side only.
	ErrUnauthorized = errors.New("invalid credentials")
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("account not found")
)

type AuthService struct {
	Repo   *repo.GormRepo
	Issuer *tokens.Issuer
	Events *events.Producer
}

type SignupInput struct {
	Username string
	Password string
	FullName string
	Email    string
	RoleID   uint
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	Account      *models.Account
}

type Profile struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, ErrValidation
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	account := &models.Account{
		Username:     in.Username,
		PasswordHash: pwHash,
		FullName:     in.FullName,
		Email:        in.Email,
		Status:       models.StatusActive,
		RoleID:       in.RoleID,
	}

	if err := s.Repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repo.ErrDuplicateAccount) {
			l.Warn("signup_conflict", "username", in.Username)
			return nil, ErrConflict
		}
		l.Error("signup_failed", "error", err)
		return nil, err
	}

	s.publish(ctx, account.ID, events.TypeAccountRegistered, account.Username)

	account.PasswordHash = ""
	return account, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, ErrValidation
	}

	account, err := s.Repo.FindAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			l.Warn("login_failed", "reason", "unknown username")
			return nil, ErrUnauthorized
		}
		l.Error("login_failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(account.PasswordHash, password) {
		l.Warn("login_failed", "reason", "wrong password")
		return nil, ErrUnauthorized
	}

	if account.Status != models.StatusActive {
		l.Warn("login_failed", "reason", "account locked")
		return nil, ErrUnauthorized
	}

	res, err := s.issueTokens(ctx, account)
	if err != nil {
		l.Error("login_failed", "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.Repo.TouchLastLogin(ctx, account.ID, now); err != nil {
		l.Warn("last_login_not_updated", "error", err)
	} else {
		account.LastLogin = &now
	}

	s.publish(ctx, account.ID, events.TypeAccountLogin, account.Username)
	l.Info("login_successful")

	return res, nil
}

// Refresh exchanges a valid refresh token for a new pair. The old token is
// revoked and replaced atomically, so a replayed token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Issuer.ParseRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "reason", err.Error())
		return nil, ErrUnauthorized
	}

	accountID, err := tokens.ParseSubject(claims.Subject)
	if err != nil {
		l.Warn("refresh_failed", "reason", "bad subject claim")
		return nil, ErrUnauthorized
	}

	account, err := s.Repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			// Token outlived its account: a signed token for a row the
			// cascade should have removed.
			l.Error("refresh_failed", "reason", "account missing for valid token", "account_id", accountID)
			return nil, ErrNotFound
		}
		return nil, err
	}

	refreshExp := time.Now().Add(s.Issuer.RefreshTTL)
	newRefresh, err := s.Issuer.SignRefresh(account.ID, refreshExp)
	if err != nil {
		return nil, err
	}
	newClaims, err := s.Issuer.ParseRefresh(newRefresh)
	if err != nil {
		return nil, err
	}

	next := &models.RefreshToken{
		TokenHash: tokens.Sha256Hex(newRefresh),
		JTI:       newClaims.ID,
		AccountID: account.ID,
		ExpiresAt: refreshExp.UTC(),
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, account.ID, next); err != nil {
		if errors.Is(err, repo.ErrRefreshInvalid) {
			l.Warn("refresh_failed", "reason", "token revoked or not on record")
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	accessExp := time.Now().Add(s.Issuer.AccessTTL)
	accessToken, err := s.Issuer.SignAccess(account.ID, account.Username, account.Role.Name, accessExp)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		Account:      account,
	}, nil
}

// Logout revokes the given refresh token, or every active token of the
// account when none is given. Idempotent either way.
func (s *AuthService) Logout(ctx context.Context, accountID uint, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout", "account_id", accountID)

	var err error
	if refreshToken != "" {
		err = s.Repo.RevokeRefreshToken(ctx, accountID, tokens.Sha256Hex(refreshToken))
	} else {
		err = s.Repo.RevokeAllRefreshTokens(ctx, accountID)
	}
	if err != nil {
		l.Error("logout_failed", "error", err)
		return err
	}

	s.publish(ctx, accountID, events.TypeAccountLogout, "")
	l.Info("logout_successful")
	return nil
}

func (s *AuthService) Profile(ctx context.Context, accountID uint) (*Profile, error) {
	account, err := s.Repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Profile{
		ID:        account.ID,
		Username:  account.Username,
		FullName:  account.FullName,
		Email:     account.Email,
		Role:      account.Role.Name,
		Status:    account.Status,
		LastLogin: account.LastLogin,
	}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, account *models.Account) (*LoginResult, error) {
	accessExp := time.Now().Add(s.Issuer.AccessTTL)
	accessToken, err := s.Issuer.SignAccess(account.ID, account.Username, account.Role.Name, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(s.Issuer.RefreshTTL)
	refreshToken, err := s.Issuer.SignRefresh(account.ID, refreshExp)
	if err != nil {
		return nil, err
	}
	claims, err := s.Issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.SaveRefreshToken(ctx, &models.RefreshToken{
		TokenHash: tokens.Sha256Hex(refreshToken),
		JTI:       claims.ID,
		AccountID: account.ID,
		ExpiresAt: refreshExp.UTC(),
	}); err != nil {
		return nil, err
	}

	account.PasswordHash = ""
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		Account:      account,
	}, nil
}

// publish is best-effort: event failures are logged, never returned.
func (s *AuthService) publish(ctx context.Context, accountID uint, eventType, username string) {
	event := map[string]any{
		"type":       eventType,
		"account_id": accountID,
	}
	if username != "" {
		event["username"] = username
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Events.Publish(pubCtx, fmt.Sprint(accountID), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "type", eventType, "error", err)
	}
}
