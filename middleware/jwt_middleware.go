// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
)

// TokenCookieName is the cookie carrying the auth token. The cookie takes
// precedence over the Authorization header.
const TokenCookieName = "token"

const defaultTokenExpiryHours = 24

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.StandardClaims
}

// Valid implements the Claims interface
func (c JwtCustomClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}
	return nil
}

// Token blacklist for logged-out tokens
var (
	tokenBlacklist   = make(map[string]time.Time)
	tokenBlacklistMu sync.RWMutex
)

// CleanupBlacklist periodically removes expired tokens from blacklist
func CleanupBlacklist() {
	for {
		time.Sleep(1 * time.Hour)
		now := time.Now()
		tokenBlacklistMu.Lock()
		for token, expiry := range tokenBlacklist {
			if now.After(expiry) {
				delete(tokenBlacklist, token)
			}
		}
		tokenBlacklistMu.Unlock()
	}
}

// BlacklistToken adds a token to the blacklist
func BlacklistToken(token string, expiry time.Time) {
	tokenBlacklistMu.Lock()
	tokenBlacklist[token] = expiry
	tokenBlacklistMu.Unlock()
}

// IsTokenBlacklisted checks if a token is blacklisted
func IsTokenBlacklisted(token string) bool {
	tokenBlacklistMu.RLock()
	_, exists := tokenBlacklist[token]
	tokenBlacklistMu.RUnlock()
	return exists
}

// GetJWTSecret returns the JWT secret from environment variables
func GetJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET environment variable is required")
	}
	return secret
}

// TokenExpiry returns the configured token lifetime.
func TokenExpiry() time.Duration {
	hours := defaultTokenExpiryHours
	if v := os.Getenv("JWT_EXPIRES_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			hours = h
		}
	}
	return time.Duration(hours) * time.Hour
}

// GenerateJWT generates a signed token with a fixed expiry
func GenerateJWT(userID string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaims{
		UserID:  userID,
		IsAdmin: isAdmin,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(TokenExpiry()).Unix(),
			IssuedAt:  now.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(GetJWTSecret()))
}

// ExtractToken pulls the auth token from the cookie first, then the
// Authorization header.
func ExtractToken(c echo.Context) string {
	if cookie, err := c.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// ParseToken validates the signature and expiry of a token string.
func ParseToken(tokenString string) (*JwtCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(GetJWTSecret()), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// RequireAuth resolves the request identity into a VerifiedUser. Missing,
// invalid, expired or blacklisted tokens and absent accounts all fail
// uniformly with 401.
func RequireAuth(verified repositories.VerifiedUserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := ExtractToken(c)
			if tokenString == "" {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "Authentication token missing",
				})
			}

			if IsTokenBlacklisted(tokenString) {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "Token has been invalidated",
				})
			}

			claims, err := ParseToken(tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "Invalid or expired token",
				})
			}

			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "Invalid authentication token",
				})
			}

			user, err := verified.FindByID(c.Request().Context(), userID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "Invalid authentication token",
				})
			}

			c.Set("authUser", user)
			return next(c)
		}
	}
}

// RequireAdmin gates admin-only routes. Must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetAuthUser(c)
			if user == nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "Unauthorized. Please login.",
				})
			}
			if !user.IsAdmin {
				return c.JSON(http.StatusForbidden, models.Response{
					Success: false,
					Message: "Forbidden. Admins only.",
				})
			}
			return next(c)
		}
	}
}

// GetAuthUser returns the VerifiedUser resolved by RequireAuth, if any.
func GetAuthUser(c echo.Context) *models.VerifiedUser {
	user, _ := c.Get("authUser").(*models.VerifiedUser)
	return user
}
