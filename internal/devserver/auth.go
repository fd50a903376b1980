package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const readerKey ctxKey = iota

// Reader is the authenticated caller of a request.
type Reader struct {
	ID   string
	Role string
}

// IsAdmin reports whether the reader may post announcements.
func (r Reader) IsAdmin() bool { return r.Role == "admin" }

// readerClaims is the token payload issued by IssueToken.
type readerClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for subject with the given role.
// A zero ttl issues a token without expiry.
func IssueToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	claims := readerClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return tok, nil
}

// parseToken verifies a bearer token and returns its reader.
func parseToken(secret []byte, raw string) (Reader, error) {
	var claims readerClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Reader{}, err
	}
	if claims.Subject == "" {
		return Reader{}, errors.New("token has no subject")
	}
	return Reader{ID: claims.Subject, Role: claims.Role}, nil
}

// authenticate rejects requests without a valid bearer token and registers
// the caller with the store on first sight.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		reader, err := parseToken(s.secret, raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if err := s.store.EnsureUser(r.Context(), reader.ID, reader.Role); err != nil {
			s.log.WithError(err).Error("registering reader")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), readerKey, reader)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly must run after authenticate.
func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !readerFrom(r).IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func readerFrom(r *http.Request) Reader {
	reader, _ := r.Context().Value(readerKey).(Reader)
	return reader
}
