package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/observability"
	"github.com/evp-nightshift/messenger/internal/transport"
)

// Claims are the fields this service reads from the identity provider's
// HS256 tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWT authenticates the bearer token and puts the subject and role in the
// request context.
func JWT(secret, issuer, audience string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			claims, err := verifyToken(tokenString, secret, issuer, audience)
			if err != nil {
				observability.GetLogger(r.Context()).Debug("jwt rejected", zap.Error(err))
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			ctx := InjectUserID(r.Context(), claims.Subject)
			ctx = InjectRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after JWT.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Role(r.Context()) != role {
				transport.WriteError(w, http.StatusForbidden, "forbidden", "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing token")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("invalid token format")
	}

	return parts[1], nil
}

func verifyToken(tokenString, secret, issuer, audience string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
