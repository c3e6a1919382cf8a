// Package admin guards maintenance routes behind a shared operator token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "complyhub/pkg/domain-errors"
	"complyhub/pkg/platform/httputil"
	"complyhub/pkg/requestcontext"
)

const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken rejects requests whose X-Admin-Token differs from want.
// With no token configured every request is rejected, so the admin routes are
// closed by default.
func RequireAdminToken(want string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(want)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderAdminToken))
			if len(expected) > 0 && subtle.ConstantTimeCompare(got, expected) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "admin route rejected",
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
				"token_present", len(got) > 0,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
		})
	}
}
