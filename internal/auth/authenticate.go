package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mpilhlt/dhamps-blog/internal/models"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
)

type contextKey string

// AuthUserKey holds the name of the authenticated principal.
const AuthUserKey = contextKey("authUser")

// Config is the security scheme configuration for the API.
var Config = map[string]*huma.SecurityScheme{
	"adminAuth": {
		Type:   "http",
		Scheme: "bearer",
	},
}

// AdminSecurity is the Security requirement of operations that need the admin key.
var AdminSecurity = []map[string][]string{
	{"adminAuth": []string{"admin"}},
}

// AuthTermination returns a middleware function that evaluates if any of the preceding
// authentication middleware functions were successful. If not, it rejects the request,
// otherwise it calls the next middleware (or the final handler) function.
// This is supposed to be called as the last auth middleware function in
// the chain.
func AuthTermination(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Check if the current operation requires authentication
		isAuthRequired := false
		for _, securityScheme := range ctx.Operation().Security {
			if len(securityScheme) > 0 {
				isAuthRequired = true
				break
			}
		}

		if !isAuthRequired {
			next(ctx)
			return
		}

		// Check if any authentication middleware has set AuthUserKey
		if _, ok := ctx.Context().Value(AuthUserKey).(string); ok {
			next(ctx)
			return
		}
		zap.L().Debug("authentication failed",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.URL().Path))
		_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "Authentication failed. Perhaps a missing or incorrect API key?")
	}
}

// AdminAuth checks for the admin key in the Authorization header.
func AdminAuth(api huma.API, options *models.Options) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Check if adminAuth is applicable
		isAuthorizationRequired := false
		for _, opScheme := range ctx.Operation().Security {
			if _, ok := opScheme["adminAuth"]; ok {
				isAuthorizationRequired = true
				break
			}
		}
		if !isAuthorizationRequired {
			next(ctx)
			return
		}

		token := bearerToken(ctx.Header("Authorization"))
		if keyIsValid(token, options.AdminKey) {
			ctx = huma.WithValue(ctx, AuthUserKey, "admin")
			zap.L().Debug("admin authentication successful")
		}

		next(ctx)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// keyIsValid compares in constant time. An unset key never matches.
func keyIsValid(token, key string) bool {
	if token == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1
}
