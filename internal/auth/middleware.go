package auth

import (
	"context"
	"net/http"
	"strings"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const actorKey = "actor"

// ActorResolver loads the acting identity for a token
type ActorResolver interface {
	ResolveActor(ctx context.Context, id uuid.UUID) (models.Actor, error)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"kind": "unauthenticated", "message": msg},
	})
}

// Middleware validates the bearer token and stores the resolved actor on the
// gin context. With required=false a request without a token continues as an
// anonymous actor.
func Middleware(tokens *TokenService, resolver ActorResolver, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				unauthorized(c, "missing bearer token")
				return
			}
			c.Set(actorKey, models.Actor{})
			c.Next()
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "malformed authorization header")
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		id, err := uuid.Parse(claims.IdentityID)
		if err != nil {
			unauthorized(c, "malformed identity claim")
			return
		}

		actor, err := resolver.ResolveActor(c.Request.Context(), id)
		if err != nil {
			if errorx.KindOf(err) == errorx.KindNotFound {
				unauthorized(c, "unknown identity")
				return
			}
			kind, msg := errorx.Describe(err)
			c.AbortWithStatusJSON(errorx.HTTPStatus(err), gin.H{
				"error": gin.H{"kind": kind, "message": msg},
			})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Middleware, or an anonymous actor
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(models.Actor); ok {
			return a
		}
	}
	return models.Actor{}
}

// RequireRole aborts unless the actor has one of the roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		for _, r := range roles {
			if actor.HasRole(r) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": gin.H{"kind": errorx.KindAuthorization, "message": "role not permitted"},
		})
	}
}
