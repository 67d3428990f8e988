package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/OxyHQ/mention-api/internal/errs"
)

// Identity is the resolved principal behind a bearer credential.
type Identity struct {
	UserID string
	Roles  []string
}

// Verifier validates bearer credentials presented at connection or request
// time. It is stateless and side-effect free; Verify is a bounded synchronous
// check suitable for running on every connection attempt.
type Verifier interface {
	Verify(credential string) (Identity, error)
}

// Options control signing parameters for the HMAC verifier.
type Options struct {
	Secret []byte
	Alg    string // HS256/HS384/HS512, default HS256
}

type hmacVerifier struct {
	opts Options
}

// NewVerifier builds an HMAC JWT verifier. Only the HMAC family is accepted;
// tokens signed with any other method fail as invalid.
func NewVerifier(opts Options) (Verifier, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("auth: secret is required")
	}
	if _, err := signingMethod(opts.Alg); err != nil {
		return nil, err
	}
	return &hmacVerifier{opts: opts}, nil
}

func (v *hmacVerifier) Verify(credential string) (Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return Identity{}, errs.ErrMissingCredential
	}

	parsed, err := jwtlib.Parse(credential, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.opts.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Identity{}, errs.ErrExpiredCredential
		}
		return Identity{}, errs.ErrInvalidCredential
	}
	if !parsed.Valid {
		return Identity{}, errs.ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Identity{}, errs.ErrInvalidCredential
	}

	id := Identity{UserID: subjectOf(claims)}
	if id.UserID == "" {
		return Identity{}, errs.ErrInvalidCredential
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	return id, nil
}

// subjectOf accepts both the standard sub claim and the legacy _id claim
// minted by the main API's token issuer.
func subjectOf(claims jwtlib.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["_id"].(string); ok {
		return id
	}
	return ""
}

// Generate signs a token for userID. Used by tests and local tooling; the
// production issuer lives in the main API.
func Generate(opts Options, userID string, roles []string, ttl time.Duration) (string, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	now := time.Now()

	claims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}

	return jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
