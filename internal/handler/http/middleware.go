package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/furnhaven/cart-service/internal/domain"
	"github.com/furnhaven/cart-service/pkg/httputil"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const ownerKey contextKey = "cart_owner"

// SessionHeader carries the guest session id, both inbound and on minted
// responses.
const SessionHeader = "X-Session-ID"

// RoleHeader carries the gateway-asserted role of the caller.
const RoleHeader = "X-User-Role"

func isAdmin(r *http.Request) bool {
	return r.Header.Get(RoleHeader) == "admin"
}

// OwnerFromHeaders resolves the cart owner from gateway-injected headers.
// An authenticated request carries X-User-ID (set by the gateway after JWT
// validation) and wins over any session header. Anonymous requests use
// X-Session-ID; when neither header is present a fresh session id is minted
// and echoed back so the storefront can persist it.
func OwnerFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var owner domain.Owner

		switch {
		case r.Header.Get("X-User-ID") != "":
			owner = domain.UserOwner(r.Header.Get("X-User-ID"))
		case r.Header.Get(SessionHeader) != "":
			owner = domain.GuestOwner(r.Header.Get(SessionHeader))
		default:
			owner = domain.GuestOwner(uuid.New().String())
		}

		if owner.IsGuest() {
			w.Header().Set(SessionHeader, owner.SessionID)
		}

		ctx := context.WithValue(r.Context(), ownerKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerFromContext extracts the cart owner from the request context.
func ownerFromContext(ctx context.Context) (domain.Owner, bool) {
	owner, ok := ctx.Value(ownerKey).(domain.Owner)
	return owner, ok
}

// RequireUser rejects requests that are not authenticated. Used for
// endpoints that need a stable user identity, like coupon redemption.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-ID") == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose gateway-asserted role is not admin.
// Coupon management is an admin surface.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r) {
			httputil.WriteJSON(w, http.StatusForbidden, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "FORBIDDEN", Message: "admin role required"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
