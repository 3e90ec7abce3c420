package web

import (
	"net/http"

	"github.com/JonMunkholm/ats-export/internal/core"
	"github.com/JonMunkholm/ats-export/internal/web/middleware"
)

// requestMetadata copies the client IP and User-Agent into the request
// context so export history can record who ran an export.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithIPAddress(r.Context(), middleware.ClientIP(r))
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
