package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/rl1809/resto-orders/internal/config"
)

const adminRole = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidHash        = errors.New("invalid hash format")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)

type argonParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var defaultArgonParams = argonParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// HashPassword returns an encoded argon2id hash:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func HashPassword(password string) (string, error) {
	p := defaultArgonParams
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, err
	}
	if version != argon2.Version {
		return false, ErrInvalidHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, err
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

type AdminClaims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

type contextKey string

const claimsContextKey contextKey = "admin_claims"

func ClaimsFromContext(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*AdminClaims)
	return claims, ok
}

// AdminAuth issues and checks HS256 access tokens for the single admin account.
type AdminAuth struct {
	username     string
	passwordHash string
	secret       []byte
	expiry       time.Duration
	logger       *gecho.Logger
	now          func() time.Time
}

func NewAdminAuth(cfg config.AuthConfig, logger *gecho.Logger) (*AdminAuth, error) {
	hash := cfg.AdminPasswordHash
	if hash == "" && cfg.AdminPassword != "" {
		var err error
		if hash, err = HashPassword(cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	}
	if hash == "" {
		logger.Warn("No admin password configured, admin login disabled")
	}

	expiry := cfg.AccessTokenExpiry
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &AdminAuth{
		username:     cfg.AdminUsername,
		passwordHash: hash,
		secret:       []byte(cfg.AccessTokenSecret),
		expiry:       expiry,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Login checks the admin credentials and returns a signed access token.
func (a *AdminAuth) Login(username, password string) (string, time.Time, error) {
	if a.passwordHash == "" {
		return "", time.Time{}, ErrLoginDisabled
	}

	ok, err := VerifyPassword(password, a.passwordHash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("verify password: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 || !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.IssueToken(username)
}

func (a *AdminAuth) IssueToken(subject string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
		"jti":  uuid.NewString(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (a *AdminAuth) ParseToken(tokenStr string) (*AdminClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid sub claim")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid role claim")
	}
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	jti, _ := claims["jti"].(string)

	return &AdminClaims{
		Subject:   sub,
		Role:      role,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
		ID:        jti,
	}, nil
}

// Middleware rejects requests without a valid admin bearer token.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tokenStr == "" {
			gecho.Unauthorized(w, gecho.WithMessage("Missing access token"), gecho.Send())
			return
		}

		claims, err := a.ParseToken(tokenStr)
		if err != nil {
			a.logger.Warn("Failed to parse admin token", gecho.Field("error", err))
			gecho.Unauthorized(w, gecho.WithMessage("Invalid or expired access token"), gecho.Send())
			return
		}
		if claims.Role != adminRole {
			a.logger.Warn("Non-admin token on admin route", gecho.Field("sub", claims.Subject), gecho.Field("role", claims.Role))
			gecho.Forbidden(w, gecho.WithMessage("Admin access required"), gecho.Send())
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
