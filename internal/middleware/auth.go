// Package middleware berisi HTTP middleware layanan SISURAT.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// AuthCookieName adalah nama cookie yang memuat token akses.
const AuthCookieName = "sisurat_token"

// Claims adalah isi token akses.
type Claims struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor mengembalikan pengguna yang diwakili token.
func (c *Claims) Actor() (model.Actor, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return model.Actor{}, fmt.Errorf("invalid subject: %w", err)
	}
	return model.Actor{UserID: id, Username: c.Username, Role: c.Role}, nil
}

// Decision adalah hasil pemeriksaan akses.
type Decision int

const (
	Allowed Decision = iota
	Unauthenticated
	Forbidden
)

// Auth menerbitkan dan memeriksa token akses HS256.
type Auth struct {
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	now          func() time.Time
}

// NewAuth membuat Auth dengan kunci rahasia dan masa berlaku token ttl.
func NewAuth(secret string, ttl time.Duration, secureCookie bool) *Auth {
	return &Auth{
		secret:       []byte(secret),
		ttl:          ttl,
		secureCookie: secureCookie,
		now:          time.Now,
	}
}

// IssueToken menandatangani token untuk actor dan mengembalikan waktu kedaluwarsanya.
func (a *Auth) IssueToken(actor model.Actor) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := Claims{
		Username: actor.Username,
		Role:     actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actor.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// ParseToken memverifikasi tanda tangan dan masa berlaku token.
func (a *Auth) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !claims.Role.IsValid() {
		return nil, errors.New("unknown role in token")
	}
	return claims, nil
}

// SetAuthCookie menyalin token ke cookie HttpOnly.
func (a *Auth) SetAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie menghapus cookie token.
func (a *Auth) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(AuthCookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authorize memeriksa token pada r dan, jika roles tidak kosong, peran pemiliknya.
func (a *Auth) Authorize(r *http.Request, roles ...model.Role) (*Claims, Decision) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return nil, Unauthenticated
	}

	claims, err := a.ParseToken(raw)
	if err != nil {
		return nil, Unauthenticated
	}

	if len(roles) == 0 {
		return claims, Allowed
	}
	for _, role := range roles {
		if claims.Role == role {
			return claims, Allowed
		}
	}
	return claims, Forbidden
}

func deny(w http.ResponseWriter, d Decision) {
	status := http.StatusUnauthorized
	msg := "autentikasi diperlukan"
	if d == Forbidden {
		status = http.StatusForbidden
		msg = "akses ditolak"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequireRoles mengizinkan permintaan dengan token valid milik salah satu
// peran roles. Tanpa roles, setiap pengguna terautentikasi diizinkan.
func (a *Auth) RequireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, d := a.Authorize(r, roles...)
			if d != Allowed {
				deny(w, d)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Middleware mengizinkan setiap pengguna terautentikasi.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return a.RequireRoles()(next)
}

// ClaimsFromContext mengambil isi token dari konteks permintaan.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// ActorFromContext mengambil pengguna terautentikasi dari konteks permintaan.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return model.Actor{}, false
	}
	actor, err := c.Actor()
	if err != nil {
		return model.Actor{}, false
	}
	return actor, true
}
