package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	tokenIssuer = "studylocal-chat"
	identityKey = "identity"
)

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("authorization token missing")

// IssueToken signs an HS256 token whose subject is userID.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenStr and returns its subject.
func ParseToken(secret []byte, tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// extractToken reads the bearer token from the Authorization header or,
// for browser websockets, from the token query parameter.
func extractToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", jwt.ErrTokenMalformed
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// Auth resolves the caller of every request into a models.Identity.
func (h *Handler) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			logrus.WithError(err).Debug("Auth middleware: no usable token")
			ErrorResponse(c, http.StatusUnauthorized, "Authorization token missing")
			c.Abort()
			return
		}

		userID, err := ParseToken(h.secret, tokenStr)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: Invalid token")
			ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		identity := models.Identity{UserID: userID}
		profile, err := h.Directory.TutorProfileByUserID(c.Request.Context(), userID)
		switch {
		case err == nil:
			identity.TutorProfileID = profile.ID
		case !errors.Is(err, storage.ErrNotFound):
			logrus.WithError(err).WithField("user_id", userID).Error("Auth middleware: profile lookup failed")
			ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Identity{}
}
