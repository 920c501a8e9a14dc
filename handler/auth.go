package handler

import (
	"errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"net/http"
	"praxis-recording/dto"
	"strings"
)

const userIdKey = "user_id"

var errMissingBearer = errors.New("missing bearer token")

// Authenticate verifies the HS256 bearer token issued by the auth provider and
// stores the subject as the caller's user id.
func Authenticate(secret []byte, issuer string) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		userId, err := parseBearer(c.GetHeader("Authorization"), parser, secret)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
			return
		}

		c.Set(userIdKey, userId)
		logger := zerolog.Ctx(c.Request.Context()).With().Str("user_id", userId.String()).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func parseBearer(header string, parser *jwt.Parser, secret []byte) (uuid.UUID, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return uuid.Nil, errMissingBearer
	}

	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(claims.Subject)
}

func UserId(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(userIdKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
