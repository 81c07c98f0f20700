package middleware

import (
	"errors"
	"net/http"
	"strings"

	"transfer-appeal-api/config"
	"transfer-appeal-api/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Claims are issued by the organization's auth service.
type Claims struct {
	UserID        string `json:"user_id"`
	PersonnelCode string `json:"personnel_code,omitempty"`
	Role          string `json:"role"`
	DistrictCode  string `json:"district_code,omitempty"`
	ProvinceCode  string `json:"province_code,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) identity() *services.Identity {
	return &services.Identity{
		UserID:        c.UserID,
		PersonnelCode: c.PersonnelCode,
		Role:          services.Role(c.Role),
		DistrictCode:  c.DistrictCode,
		ProvinceCode:  c.ProvinceCode,
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}

// AuthMiddleware validates the HS256 bearer token and stores the caller's
// identity on the context. An empty secret falls back to config.App.JWTSecret.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := secret
		if key == "" {
			key = config.App.JWTSecret
		}
		if key == "" {
			abortUnauthorized(c, "Authentication is not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(key), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, "Token has expired")
				return
			}
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		identity := claims.identity()
		if identity.UserID == "" || !validRole(identity.Role) {
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		c.Set(identityKey, identity)
		c.Set("userID", identity.UserID)
		c.Next()
	}
}

func validRole(role services.Role) bool {
	switch role {
	case services.RoleApplicant, services.RoleDistrictExpert, services.RoleProvinceExpert,
		services.RoleDestinationExpert, services.RoleAdmin:
		return true
	}
	return false
}

// RequireRole aborts with 403 unless the caller holds one of roles.
func RequireRole(roles ...services.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Role not found"})
			return
		}
		if err := services.Authorize(identity, roles...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (*services.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*services.Identity)
	return identity, ok && identity != nil
}

// SetIdentity stores identity on the context as AuthMiddleware would.
func SetIdentity(c *gin.Context, identity *services.Identity) {
	c.Set(identityKey, identity)
	if identity != nil {
		c.Set("userID", identity.UserID)
	}
}
