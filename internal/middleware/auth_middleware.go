package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/util"
)

// Context key for the authenticated actor
const ActorKey = "actor"

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate validates the bearer token and stores the actor in the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Missing authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Authorization header must be Bearer <token>")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(parts[1], m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if errors.Is(err, util.ErrExpiredToken) {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Token has expired")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid token")
			}
			c.Abort()
			return
		}

		role, err := model.ParseUserRole(claims.Role)
		if err != nil {
			log.Warn("Token carries unknown role", map[string]interface{}{
				"user_id": claims.UserID,
				"role":    claims.Role,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid token")
			c.Abort()
			return
		}

		actor := model.Actor{UserID: claims.UserID, Role: role}
		c.Set(ActorKey, actor)

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": actor.UserID,
			"role":    actor.Role,
		})

		c.Next()
	}
}

// RequireRole checks if the actor has one of the roles
func (m *AuthMiddleware) RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		actor, exists := GetActor(c)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzRoleNotFound, "Role information not found")
			c.Abort()
			return
		}

		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}

		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        actor.UserID,
			"user_role":      actor.Role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		apperrors.Forbidden(c, "")
		c.Abort()
	}
}

// RequireStaff admits admins and managers
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return m.RequireRole(model.RoleAdmin, model.RoleManager)
}

// GetActor extracts the authenticated actor from context
func GetActor(c *gin.Context) (model.Actor, bool) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := value.(model.Actor)
	return actor, ok
}
