package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"runtoyou.app/runtoyou/internal/entity"
	userRepo "runtoyou.app/runtoyou/internal/modules/user/repository"
	"runtoyou.app/runtoyou/pkg/response"
)

type AuthMiddleware struct {
	userRepo userRepo.UserRepository
	secret   string
}

func NewAuthMiddleware(userRepo userRepo.UserRepository, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		secret:   secret,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (websockets can't set headers)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			response.Message(c, http.StatusUnauthorized, "No token, authorization denied")
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.secret), nil
		})
		if err != nil || !token.Valid {
			response.Message(c, http.StatusUnauthorized, "Token is not valid")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			response.Message(c, http.StatusUnauthorized, "Token is not valid")
			c.Abort()
			return
		}
		if _, err := uuid.Parse(claims.Subject); err != nil {
			response.Message(c, http.StatusUnauthorized, "Token is not valid")
			c.Abort()
			return
		}

		c.Set("user_id", claims.Subject)
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			response.Message(c, http.StatusUnauthorized, "User not authenticated")
			c.Abort()
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			response.Message(c, http.StatusUnauthorized, "User not found")
			c.Abort()
			return
		}

		if user.Role.Name != entity.RoleAdmin {
			response.Message(c, http.StatusForbidden, "Admin access required")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}
