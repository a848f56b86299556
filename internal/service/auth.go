package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/webitel/im-social-service/internal/domain/model"
)

// Auther verifies bearer tokens issued by the account service.
type Auther interface {
	Inspect(token string) (*model.AuthContact, error)
	// Issue signs a token for contact. Used by test tooling only.
	Issue(contact *model.AuthContact) (string, error)
}

// Claims is the token body shared with the account service.
type Claims struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewAuthService(secret, issuer string, ttl time.Duration) *AuthService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &AuthService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		parser: jwt.NewParser(opts...),
	}
}

func (s *AuthService) Inspect(token string) (*model.AuthContact, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", model.ErrUnauthorized)
	}

	claims := new(Claims)
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", model.ErrUnauthorized)
		}
		return nil, fmt.Errorf("invalid token: %w: %w", model.ErrUnauthorized, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.Username == "" {
		return nil, fmt.Errorf("token subject: %w", model.ErrUnauthorized)
	}

	return &model.AuthContact{
		UserID:      userID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
	}, nil
}

func (s *AuthService) Issue(contact *model.AuthContact) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username:    contact.Username,
		DisplayName: contact.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   contact.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
