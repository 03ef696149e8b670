package httppresentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is what a verified token says about the caller.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator verifies HS256 bearer tokens. Issuing them is someone
// else's job; only the subject and an optional email claim are read.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

func (a *Authenticator) Verify(raw string) (Identity, error) {
	if len(a.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	return Identity{UserID: sub, Email: email}, nil
}

type userKey struct{}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user id.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, ErrMissingToken)
			return
		}
		id, err := h.auth.Verify(raw)
		if err != nil {
			logctx.FromOr(r.Context(), h.log).Debug("auth_rejected", observability.Err(err))
			writeError(w, http.StatusUnauthorized, ErrInvalidToken)
			return
		}
		if h.dir != nil {
			if derr := h.dir.Remember(r.Context(), id.UserID, id.Email); derr != nil {
				logctx.FromOr(r.Context(), h.log).Warn("directory_remember_failed",
					observability.F("user_id", id.UserID),
					observability.Err(derr),
				)
			}
		}

		ctx := withUser(r.Context(), id.UserID)
		ctx = logctx.Append(ctx, h.log, observability.F("user_id", id.UserID))
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// mustUser is only reachable behind requireUser.
func mustUser(r *http.Request) string {
	id, _ := UserFromContext(r.Context())
	return id
}
