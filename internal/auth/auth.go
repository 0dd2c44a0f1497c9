// Package auth issues and checks the two kinds of tokens the service hands
// out: admin sessions and the nonces embedded in gate forms. Both are HS256
// JWTs signed with JWT_SECRET and told apart by their purpose claim.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
	"newsletter-gate/internal/config"
	"newsletter-gate/internal/storage"
)

const (
	// SessionCookie carries the admin session token
	SessionCookie = "session"
	// SessionTTL is the lifetime of an admin session
	SessionTTL = 24 * time.Hour
	// NonceTTL is the lifetime of a gate form nonce
	NonceTTL = 12 * time.Hour
	// NoncePurpose marks tokens accepted by the public gate endpoints
	NoncePurpose = "newslettergate"

	sessionPurpose = "session"
	issuer         = "newsletter-gate"
	revokedPrefix  = "auth:revoked:"
)

// TokenStore keeps revoked session tokens until they would have expired.
// The Redis client satisfies it.
type TokenStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type Auth struct {
	storage      storage.Storage
	jwtSecret    []byte
	tokens       TokenStore
	cookieSecure bool
	cookieDomain string
}

// Claims are shared by sessions and nonces
type Claims struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Purpose  string `json:"purpose"`
	jwt.RegisteredClaims
}

type contextKey struct{}

// New builds the authenticator. tokens may be nil, in which case logout only
// clears the cookie and sessions stay valid until they expire.
func New(store storage.Storage, cfg *config.Config, tokens TokenStore) *Auth {
	if cfg.JWTSecret == "" {
		panic("auth: JWT secret is required")
	}
	return &Auth{
		storage:      store,
		jwtSecret:    []byte(cfg.JWTSecret),
		tokens:       tokens,
		cookieSecure: cfg.CookieSecure,
		cookieDomain: cfg.CookieDomain,
	}
}

// EnsureDefaultAdmin creates the admin account from ADMIN_USERNAME and
// ADMIN_PASSWORD when the users table is empty. It reports whether a user
// was created.
func (a *Auth) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := a.storage.GetUserCount(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if username == "" || password == "" {
		logging.Warn("No admin users exist and ADMIN_USERNAME/ADMIN_PASSWORD are not set; the admin API is unreachable")
		return false, nil
	}

	if _, err := a.storage.CreateUser(ctx, username, password); err != nil {
		return false, fmt.Errorf("failed to create default admin: %w", err)
	}
	logging.Info("Created default admin user", logging.String("username", username))
	return true, nil
}

// Login checks the credentials and returns a signed session token
func (a *Auth) Login(ctx context.Context, username, password string) (string, *storage.User, error) {
	user, err := a.storage.ValidateUser(ctx, username, password)
	if err != nil {
		return "", nil, errors.AuthError("invalid credentials")
	}

	token, err := a.GenerateJWT(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Logout revokes token for the rest of its lifetime. Tokens that no longer
// parse are already unusable and are ignored.
func (a *Auth) Logout(ctx context.Context, token string) error {
	claims, err := a.parse(token, sessionPurpose)
	if err != nil {
		return nil
	}
	if a.tokens == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := a.tokens.Set(ctx, revokedKey(token), "1", ttl); err != nil {
		return errors.InternalError("failed to revoke session", err)
	}
	return nil
}

// GenerateJWT signs a session token for the user
func (a *Auth) GenerateJWT(userID int64, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Purpose:  sessionPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return a.sign(claims)
}

// ValidateJWT verifies a session token and that it has not been revoked
func (a *Auth) ValidateJWT(ctx context.Context, token string) (*Claims, error) {
	claims, err := a.parse(token, sessionPurpose)
	if err != nil {
		return nil, err
	}

	if a.tokens != nil {
		if v, err := a.tokens.Get(ctx, revokedKey(token)); err == nil && v != "" {
			return nil, errors.AuthError("token has been revoked")
		}
	}
	return claims, nil
}

// IssueNonce signs a nonce for the public gate forms
func (a *Auth) IssueNonce() (string, error) {
	now := time.Now()
	return a.sign(&Claims{
		Purpose: NoncePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(NonceTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	})
}

// VerifyNonce accepts only unexpired tokens carrying the gate purpose
func (a *Auth) VerifyNonce(nonce string) error {
	if nonce == "" {
		return errors.AuthError("missing nonce")
	}
	if _, err := a.parse(nonce, NoncePurpose); err != nil {
		return errors.AuthError("invalid nonce")
	}
	return nil
}

func (a *Auth) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", errors.InternalError("failed to sign token", err)
	}
	return signed, nil
}

func (a *Auth) parse(token, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid {
		return nil, errors.AuthError("invalid token")
	}
	if claims.Purpose != purpose {
		return nil, errors.AuthError("invalid token")
	}
	return claims, nil
}

// SetSessionCookie stores token in the HttpOnly session cookie. It is Lax
// so the OAuth redirect back from a provider still carries it.
func (a *Auth) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Domain:   a.cookieDomain,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(SessionTTL),
	})
}

func (a *Auth) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Domain:   a.cookieDomain,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		MaxAge:   -1,
	})
}

// TokenFromRequest returns the bearer token, falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth rejects requests without a valid session with a JSON 401 and
// puts the claims in the request context for the next handler.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			unauthorized(w, "Authentication required")
			return
		}

		claims, err := a.ValidateJWT(r.Context(), token)
		if err != nil {
			unauthorized(w, errors.Message(err, "Authentication required"))
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, claims)
		ctx = logging.ContextWithUser(ctx, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the session claims set by RequireAuth
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}

// revokedKey hashes the token so the store never holds usable credentials
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedPrefix + hex.EncodeToString(sum[:])
}
