package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// KeyFunc derives the client key of a request.
type KeyFunc func(ctx huma.Context) string

type Options struct {
	Store              *Store
	KeyFn              KeyFunc
	TrustXForwardedFor bool
	RetryAfter         time.Duration
}

// DefaultKeyFunc keys clients by remote host. If trustXFF is set, the first
// address of X-Forwarded-For wins.
func DefaultKeyFunc(trustXFF bool) KeyFunc {
	return func(ctx huma.Context) string {
		if trustXFF {
			if xff := ctx.Header("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		addr := strings.TrimSpace(ctx.RemoteAddr())
		host, _, err := net.SplitHostPort(addr)
		if err == nil && host != "" {
			return host
		}
		if addr != "" {
			return addr
		}
		return "unknown"
	}
}

// Middleware rejects requests with 429 once a client has used up its bucket.
func Middleware(api huma.API, opts Options) func(ctx huma.Context, next func(huma.Context)) {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.TrustXForwardedFor)
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = time.Second
	}
	retryAfter := strconv.Itoa(int(math.Ceil(opts.RetryAfter.Seconds())))

	return func(ctx huma.Context, next func(huma.Context)) {
		if opts.Store == nil {
			next(ctx)
			return
		}

		lim := opts.Store.Get(opts.KeyFn(ctx))
		if lim.Allow() {
			next(ctx)
			return
		}

		ctx.SetHeader("Retry-After", retryAfter)
		_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded, please retry later")
	}
}
