package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collections-review-backend/internal/models"
)

const actorContextKey = "actor"

// ActorFromHeaders builds the caller identity from the headers the
// authentication front end sets. Session issuance is not our job; an
// absent identity is rejected here.
func ActorFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Actor-Id"))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identidad no proporcionada"})
			return
		}
		role := models.Role(strings.TrimSpace(c.GetHeader("X-Actor-Role")))
		switch role {
		case models.RoleAgent, models.RoleReviewer, models.RoleAdmin:
		default:
			role = models.RoleAgent
		}
		var branches []string
		if raw := c.GetHeader("X-Actor-Branches"); raw != "" {
			for _, b := range strings.Split(raw, ",") {
				if b = strings.TrimSpace(b); b != "" {
					branches = append(branches, b)
				}
			}
		}
		c.Set(actorContextKey, models.Actor{ID: id, Role: role, Branches: branches})
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	v, _ := c.Get(actorContextKey)
	actor, _ := v.(models.Actor)
	return actor
}
