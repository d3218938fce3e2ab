package service

import "context"

// AuthorizationPolicy decides whether an authenticated role may perform an
// action. The back office currently treats every valid access token as
// authorized, so the default policy allows everything; real enforcement can
// be substituted without touching call sites.
type AuthorizationPolicy interface {
	Allowed(ctx context.Context, role, action string) bool
}

type AllowAll struct{}

func (AllowAll) Allowed(context.Context, string, string) bool { return true }
