// Package confirm issues short-lived signed tokens that prove a user saw
// and accepted a destructive action before it is carried out.
package confirm

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-ocr-inventory/internal/model"
)

const (
	DefaultTTL = 2 * time.Minute
	tokenType  = "delete_confirm"
)

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu   sync.Mutex
	used map[string]time.Time
}

// NewService creates a token service. An empty secret is replaced by a
// random one, which invalidates outstanding tokens on restart.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	key := []byte(secret)
	if len(key) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate confirm secret: %w", err)
		}
		key = []byte(hex.EncodeToString(buf))
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Service{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
		used:   make(map[string]time.Time),
	}, nil
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token bound to one document key.
func (s *Service) Issue(key string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": key,
		"typ": tokenType,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign confirm token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks that tokenString confirms key. A token is accepted once.
func (s *Service) Verify(tokenString string, key string) error {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", model.ErrInvalidConfirmation, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("%w: unexpected claims", model.ErrInvalidConfirmation)
	}

	typ, _ := claims["typ"].(string)
	if typ != tokenType {
		return fmt.Errorf("%w: wrong token type", model.ErrInvalidConfirmation)
	}

	sub, _ := claims["sub"].(string)
	if sub != key {
		return fmt.Errorf("%w: token issued for another document", model.ErrInvalidConfirmation)
	}

	jti, _ := claims["jti"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fmt.Errorf("%w: missing expiry", model.ErrInvalidConfirmation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	if _, seen := s.used[jti]; seen {
		return fmt.Errorf("%w: token already used", model.ErrInvalidConfirmation)
	}
	s.used[jti] = exp.Time

	return nil
}

func (s *Service) pruneLocked() {
	now := s.now()
	for jti, expiresAt := range s.used {
		if now.After(expiresAt) {
			delete(s.used, jti)
		}
	}
}
