// Package middleware provides net/http guards over the engine's per-request
// validation. A Guard extracts the bearer access token, validates it, and
// stashes the result in the request context for handlers downstream.
package middleware

import (
	"context"
	"net/http"
	"strings"

	shopauth "github.com/MrEthical07/shopauth"
)

// DefaultDeviceHeader is the header clients use to present their device id
// when device pinning is enabled.
const DefaultDeviceHeader = "X-Device-Id"

// Validator is the slice of the engine a Guard needs.
type Validator interface {
	Validate(ctx context.Context, accessToken string) (*shopauth.AuthResult, error)
}

type contextKey struct{}

// Guard builds auth middleware around a Validator.
type Guard struct {
	validator    Validator
	deviceHeader string
	pinDevice    bool
}

func NewGuard(v Validator) *Guard {
	return &Guard{validator: v, deviceHeader: DefaultDeviceHeader}
}

// WithDevicePinning additionally requires the device header to match the
// device the token was minted for. The token alone is sufficient without it.
func (g *Guard) WithDevicePinning() *Guard {
	g.pinDevice = true
	return g
}

// WithDeviceHeader overrides the header checked by device pinning.
func (g *Guard) WithDeviceHeader(name string) *Guard {
	g.deviceHeader = name
	return g
}

// RequireAuth rejects requests without a valid access token backed by a live
// device session. On success the AuthResult is available via FromContext.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := g.validator.Validate(r.Context(), bearerToken(r))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if g.pinDevice && r.Header.Get(g.deviceHeader) != result.DeviceID {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, result)))
	})
}

// RequireRole is RequireAuth plus an exact role check, answering 403 when the
// token's role does not match.
func (g *Guard) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, _ := FromContext(r.Context())
			if result == nil || result.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// FromContext returns the AuthResult stored by RequireAuth.
func FromContext(ctx context.Context) (*shopauth.AuthResult, bool) {
	result, ok := ctx.Value(contextKey{}).(*shopauth.AuthResult)
	return result, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return auth[7:]
	}
	return ""
}
