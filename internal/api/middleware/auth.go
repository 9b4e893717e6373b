package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fridge-chef/internal/infrastructure/config"
	"fridge-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	userIDKey      = "user_id"
	userIDHeader   = "X-User-ID"
	bearerPrefix   = "Bearer "
	defaultExpires = 24 * time.Hour
)

// Authenticator 驗證 HS256 JWT，subject 即使用者 id
type Authenticator struct {
	secret      []byte
	issuer      string
	allowHeader bool
}

// NewAuthenticator 依設定建立驗證器
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.Issuer,
		allowHeader: cfg.AllowHeaderIdentity,
	}
}

// IssueToken 簽發權杖（測試與開發工具用）
func (a *Authenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultExpires
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseToken 驗證權杖並回傳使用者 id
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

// Middleware 取得使用者身分，失敗回 401
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
			userID, err := a.ParseToken(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				common.LogWarn("Invalid token",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
				abortUnauthorized(c)
				return
			}
			c.Set(userIDKey, userID)
			c.Next()
			return
		}

		if a.allowHeader {
			if userID := strings.TrimSpace(c.GetHeader(userIDHeader)); userID != "" {
				c.Set(userIDKey, userID)
				c.Next()
				return
			}
		}

		abortUnauthorized(c)
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(common.ErrUnauthorized.Status, common.ErrorResponse{
		Code:    common.ErrUnauthorized.Code,
		Message: "authentication required",
	})
}

// UserID 目前請求的使用者 id
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
