package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/logger"
)

// operatorKey is the gin context key holding the authenticated operator.
const operatorKey = "operator"

// defaultOperator is used when authentication is disabled.
const defaultOperator = "operator"

// AuthMiddleware 创建一个 Gin 中间件，用于验证运维接口的 JWT。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		// 期望的格式是 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// 只接受 HMAC 签名
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		subject, ok := subjectOf(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		c.Set(operatorKey, subject)
		c.Next()
	}
}

// subjectOf 读取 sub 声明。数字形式的 sub 在解析后是 float64。
func subjectOf(claims jwt.MapClaims) (string, bool) {
	switch v := claims["sub"].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	}
	return "", false
}

// operatorOf 返回当前请求的操作者。
func operatorOf(c *gin.Context) string {
	if v, ok := c.Get(operatorKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultOperator
}

// RequestLogger 以结构化日志记录每个 HTTP 请求。
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		info := requestInfo(c)
		info.Status = c.Writer.Status()
		info.LatencyMS = time.Since(start).Milliseconds()
		entry := log.WithRequest(info)
		switch {
		case info.Status >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case info.Status >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Debug("HTTP request")
		}
	}
}

func requestInfo(c *gin.Context) models.RequestInfo {
	return models.RequestInfo{
		Method:     c.Request.Method,
		Path:       c.Request.URL.Path,
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
}
