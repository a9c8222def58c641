package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"filegate/internal/models"
)

// Claims represents the JWT claims structure.
type Claims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	Admin  bool   `json:"adm"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user id from the gin context, or 0 for
// anonymous visitors.
func UserID(c *gin.Context) uint {
	claims, ok := c.Get("claims")
	if !ok {
		return 0
	}
	return claims.(*Claims).UserID
}

// JWT returns a Gin middleware that validates JWT tokens from either the
// Authorization header or a "token" cookie and verifies that the user is
// still active in the database.
func JWT(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := resolve(c, db, secret)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid bearer token"})
			c.Abort()
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// Visitor returns a middleware that resolves claims when a valid token is
// present but lets anonymous requests through. Browse routes use this: the
// filter service treats visitors as holding no bypass permission.
func Visitor(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := resolve(c, db, secret); ok {
			c.Set("claims", claims)
		}
		c.Next()
	}
}

// AdminOnly requires claims resolved by JWT and the admin flag.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsI, ok := c.Get("claims")
		if !ok || !claimsI.(*Claims).Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin required"})
			return
		}
		c.Next()
	}
}

func resolve(c *gin.Context, db *gorm.DB, secret string) (*Claims, bool) {
	tokenStr := c.GetHeader("Authorization")

	// Fallback: read from cookie if no Authorization header
	if tokenStr == "" {
		if cookie, err := c.Cookie("token"); err == nil {
			tokenStr = "Bearer " + cookie
		}
	}
	if tokenStr == "" {
		return nil, false
	}

	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, false
	}

	// Verify user still exists and is active
	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, false
	}
	if user.Status != models.UserActive {
		return nil, false
	}

	// Admin flag is re-read so a demotion takes effect before token expiry.
	claims.Admin = user.Admin
	return claims, true
}
