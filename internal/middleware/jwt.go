package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examflow/editorial/internal/auth"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/pkg/response"
)

const (
	// ContextActor is the key for the caller identity in gin context.
	ContextActor = "actor"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// JWT returns a middleware that validates the bearer token and stores the Actor in context.
// Browsers cannot set headers on websocket upgrades, so a "token" query parameter is accepted too.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(raw)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextActor, claims.Actor())
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if t := c.Query("token"); t != "" {
			return t, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return models.Actor{}, false
	}
	a, ok := v.(models.Actor)
	return a, ok
}

// MustActor returns the actor set by JWT. Only call it behind that middleware.
func MustActor(c *gin.Context) models.Actor {
	a, ok := ActorFrom(c)
	if !ok {
		panic("middleware: actor missing from context")
	}
	return a
}
