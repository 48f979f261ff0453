// Package auth recognises authenticated dashboard callers from the session
// JWT they present. It never rejects a request itself; the router and
// gateway decide what an unauthenticated caller gets.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"timetrack-gateway/internal/common/cache"
	"timetrack-gateway/internal/common/errors"
	"timetrack-gateway/internal/common/logging"
)

// MinSecretLength is the shortest accepted HS256 secret
const MinSecretLength = 32

// SessionCookie is the cookie carrying the session JWT
const SessionCookie = "session"

const revocationPrefix = "jwt:blacklist:"

// Claims are the session claims issued by the account service
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// RevocationStore looks up revoked tokens. *redis.Client satisfies it.
type RevocationStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// Authenticator validates session JWTs
type Authenticator struct {
	secret      []byte
	issuer      string
	revocations RevocationStore
	revoked     cache.Cache
	logger      logging.Logger
}

// New creates an Authenticator. issuer may be empty to accept any issuer;
// revocations may be nil.
func New(secret, issuer string, revocations RevocationStore, logger logging.Logger) (*Authenticator, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.ConfigError(fmt.Sprintf("JWT secret must be at least %d characters", MinSecretLength))
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Authenticator{
		secret:      []byte(secret),
		issuer:      issuer,
		revocations: revocations,
		revoked:     cache.NewLocalCache(time.Hour, 10*time.Minute),
		logger:      logger.WithFields(logging.Field{Key: "component", Value: "auth"}),
	}, nil
}

// GenerateJWT issues a session token. The gateway only validates tokens;
// this exists for operators and tests.
func (a *Authenticator) GenerateJWT(userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.InternalError("failed to sign session token", err)
	}
	return signed, nil
}

// ValidateJWT verifies signature, expiry, issuer and revocation
func (a *Authenticator) ValidateJWT(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.AuthError("missing session token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.AuthError(fmt.Sprintf("invalid session token: %v", err))
	}
	if !token.Valid {
		return nil, errors.AuthError("invalid session token")
	}

	if a.isRevoked(ctx, tokenString, claims) {
		return nil, errors.AuthError("token has been revoked")
	}

	return claims, nil
}

// isRevoked fails open: a revocation store outage must not lock every user out.
// Revocation is permanent, so a revoked verdict is remembered until the token
// would have expired anyway.
func (a *Authenticator) isRevoked(ctx context.Context, tokenString string, claims *Claims) bool {
	if a.revocations == nil {
		return false
	}
	if _, found := a.revoked.Get(ctx, tokenString); found {
		return true
	}

	value, err := a.revocations.Get(ctx, revocationPrefix+tokenString)
	if err != nil {
		a.logger.Debug("Revocation lookup returned no entry", logging.Field{Key: "error", Value: err.Error()})
		return false
	}
	if value == "" {
		return false
	}

	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
		_ = a.revoked.Set(ctx, tokenString, true, ttl)
	}
	return true
}

// TokenFromRequest extracts the session JWT from the Authorization header or
// the session cookie, preferring the header.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}

	return ""
}

// Authenticated reports whether r carries a valid session
func (a *Authenticator) Authenticated(r *http.Request) bool {
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims != nil {
		return true
	}
	if rejected, _ := r.Context().Value(rejectedKey{}).(bool); rejected {
		return false
	}

	token := TokenFromRequest(r)
	if token == "" {
		return false
	}

	_, err := a.ValidateJWT(r.Context(), token)
	return err == nil
}

type claimsKey struct{}

// rejectedKey marks a request whose token Middleware already refused
type rejectedKey struct{}

// ContextWithClaims stores validated claims on ctx
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns claims stored by Middleware
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// Middleware validates the session once per request and stores the verdict
// in the request context so Authenticated does not validate again. Requests
// without a valid session still pass through.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.ValidateJWT(r.Context(), token)
		if err != nil {
			a.logger.WithContext(r.Context()).Debug("Session token rejected",
				logging.Field{Key: "error", Value: err.Error()},
				logging.Field{Key: "path", Value: r.URL.Path},
			)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), rejectedKey{}, true)))
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}
