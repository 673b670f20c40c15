package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/storejobs/internal/actorctx"
	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/policy"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	return raw, raw != ""
}

// actorFromToken turns verified claims into the explicit actor every policy call takes.
func (m *AuthMiddleware) actorFromToken(raw string) (policy.Actor, string, bool) {
	claims, err := m.jwt.VerifyAccessToken(raw)
	if err != nil {
		return policy.Anonymous(), "", false
	}
	role, ok := claims.ParsedRole()
	if !ok || claims.UserID == "" {
		return policy.Anonymous(), "", false
	}
	return policy.Actor{ID: claims.UserID, Role: role}, claims.Email, true
}

func setActor(c *gin.Context, actor policy.Actor, email string) {
	c.Set(CtxActor, actor)
	c.Set(CtxEmail, email)
	c.Request = c.Request.WithContext(actorctx.WithActor(c.Request.Context(), actor))
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		actor, email, ok := m.actorFromToken(raw)
		if !ok {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		setActor(c, actor, email)
		c.Next()
	}
}

// OptionalAuth attaches the actor when a valid token is sent. A missing or
// stale token leaves the request anonymous so public pages keep working.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if actor, email, ok := m.actorFromToken(raw); ok {
				setActor(c, actor, email)
			}
		}
		c.Next()
	}
}

// ActorFromContext returns the anonymous actor when no auth middleware ran.
func ActorFromContext(c *gin.Context) policy.Actor {
	v, ok := c.Get(CtxActor)
	if !ok {
		return policy.Anonymous()
	}
	a, _ := v.(policy.Actor)
	return a
}

// UserIDFromContext reads the actor the auth middleware put on the request context.
func UserIDFromContext(c *gin.Context) (string, bool) {
	return actorctx.UserIDFrom(c.Request.Context())
}

func EmailFromContext(c *gin.Context) string {
	v, _ := c.Get(CtxEmail)
	s, _ := v.(string)
	return s
}

func RequestIDFromContext(c *gin.Context) string {
	if v, ok := c.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.GetHeader(requestIDHeader)
}
