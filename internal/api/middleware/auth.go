package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-boxoffice/internal/api/shared/errors"
	"github.com/feral-file/ff-boxoffice/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	AUTH_TYPE_KEY    contextKey = "auth_type"
	AUTH_SUBJECT_KEY contextKey = "auth_subject"
	JWT_CLAIMS_KEY   contextKey = "jwt_claims"
)

// AuthConfig holds authentication configuration for admin routes
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
	APIKeys      []string
}

// authResult holds the outcome of credential validation
type authResult struct {
	authType string // "jwt" or "apikey"
	claims   *jwt.RegisteredClaims
	subject  string
	err      error
}

// Auth returns a gin middleware guarding admin routes. It accepts either a
// "Bearer <jwt>" header verified against the configured RSA public key or an
// "ApiKey <key>" header matched against the configured key list.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	apiKeys := make(map[string]bool, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeys[key] = true
		}
	}

	return func(c *gin.Context) {
		result := authenticate(c.GetHeader("Authorization"), cfg.JWTPublicKey, apiKeys)

		if result.err != nil {
			logger.Warn("Authentication failed",
				zap.Error(result.err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", result.err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		c.Set(string(AUTH_TYPE_KEY), result.authType)
		if result.claims != nil {
			c.Set(string(JWT_CLAIMS_KEY), result.claims)
		}
		if result.subject != "" {
			c.Set(string(AUTH_SUBJECT_KEY), result.subject)
		}
		logger.Debug("Authentication successful",
			zap.String("auth_type", result.authType),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)

		c.Next()
	}
}

// authenticate validates the Authorization header against both credential
// schemes
func authenticate(authHeader string, jwtPublicKey string, apiKeys map[string]bool) authResult {
	if authHeader == "" {
		return authResult{err: errors.New("missing Authorization header")}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return authResult{err: errors.New("invalid Authorization header format")}
	}

	scheme, credentials := strings.ToLower(parts[0]), parts[1]

	switch scheme {
	case "bearer":
		claims, err := validateJWT(credentials, jwtPublicKey)
		if err != nil {
			return authResult{err: err}
		}
		return authResult{authType: "jwt", claims: claims, subject: claims.Subject}

	case "apikey":
		if err := validateAPIKey(credentials, apiKeys); err != nil {
			return authResult{err: err}
		}
		return authResult{authType: "apikey"}

	default:
		return authResult{err: fmt.Errorf("unsupported authorization type: %s", scheme)}
	}
}

// validateJWT validates a JWT token with RSA signature and returns claims
func validateJWT(tokenString string, publicKeyPEM string) (*jwt.RegisteredClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	now := time.Now()
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return nil, errors.New("token has expired")
	}
	if claims.NotBefore != nil && claims.NotBefore.After(now) {
		return nil, errors.New("token not yet valid")
	}

	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Fall back to PKCS1
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}

	return rsaKey, nil
}

// validateAPIKey validates an API key against the configured set
func validateAPIKey(apiKey string, validKeys map[string]bool) error {
	if len(validKeys) == 0 {
		return errors.New("no API keys configured")
	}
	if !validKeys[apiKey] {
		return errors.New("invalid API key")
	}
	return nil
}
