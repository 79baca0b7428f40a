package api

import (
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/maktabaapp/maktaba-server/internal/errors"
)

// bulkRateLimit is a huma operation middleware that throttles bulk routes.
// Requests are keyed by acting user, falling back to the client IP.
// Returns 429 Too Many Requests when the limit is exceeded.
func (s *Server) bulkRateLimit(ctx huma.Context, next func(huma.Context)) {
	if s.bulkRateLimiter == nil {
		next(ctx)
		return
	}

	key := ctx.Header(HeaderUserID)
	if key == "" {
		key = "ip:" + clientIP(ctx.RemoteAddr())
	}

	if !s.bulkRateLimiter.Allow(key) {
		s.logger.Warn("bulk rate limit exceeded",
			"key", key,
			"path", ctx.URL().Path,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests,
			"Too many bulk requests. Please try again later.",
			domainerrors.RateLimited("Too many bulk requests. Please try again later."))
		return
	}

	next(ctx)
}

// clientIP strips the port from a remote address. middleware.RealIP has
// already applied X-Forwarded-For / X-Real-IP by the time this runs.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
