package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"csrhub/internal/auth"
	"csrhub/internal/config"
	"csrhub/pkg/apperror"
	"csrhub/pkg/response"
)

const actorContextKey = "actor"

// Authenticator validates access tokens and manages the auth cookies
type Authenticator struct {
	secret     []byte
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthenticator(cfg config.AuthConfig, ginMode string) *Authenticator {
	return &Authenticator{
		secret:     []byte(cfg.JWTSecret),
		secure:     ginMode == "release",
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

// Secret is the HMAC key shared with the websocket endpoint
func (a *Authenticator) Secret() []byte {
	return a.secret
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (a *Authenticator) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	if a.secure {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, int(a.accessTTL.Seconds()), "/", "", a.secure, true)
	c.SetCookie("refresh_token", refreshToken, int(a.refreshTTL.Seconds()), "/", "", a.secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (a *Authenticator) ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	if a.secure {
		sameSite = http.SameSiteNoneMode
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", a.secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", a.secure, true)
}

func abortWith(c *gin.Context, err error) {
	status, body := response.FromError(err)
	c.AbortWithStatusJSON(status, body)
}

// RequireRole validates the JWT token and checks the user's role against allowedRoles.
// No roles means any authenticated user.
func (a *Authenticator) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				abortWith(c, apperror.Unauthorized("authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				abortWith(c, apperror.Unauthorized("invalid authorization format, expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		actor, err := auth.ParseToken(a.secret, tokenString)
		if err != nil {
			abortWith(c, apperror.Unauthorized("invalid token"))
			return
		}

		if len(allowedRoles) > 0 {
			roleAllowed := false
			for _, role := range allowedRoles {
				if actor.Role == role {
					roleAllowed = true
					break
				}
			}
			if !roleAllowed {
				abortWith(c, apperror.Forbidden("access denied: insufficient permissions"))
				return
			}
		}

		c.Set("userID", actor.UserID.String())
		c.Set("userRole", actor.Role)
		c.Set(actorContextKey, actor)
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}

// CurrentActor returns the actor set by RequireRole
func CurrentActor(c *gin.Context) (auth.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return auth.Actor{}, false
	}
	actor, ok := v.(auth.Actor)
	return actor, ok
}
