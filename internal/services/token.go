package services

import (
	"errors"
	"time"

	"github.com/ackportal/backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// DownloadScope is the scope claim carried by delegated download tokens
const DownloadScope = "content:read"

// ErrTokenDenied means a presented download token is missing, malformed,
// expired, or carries the wrong scope. Distinct from "not signed in": the
// content proxy is reachable without a session, but only with a valid
// delegated token.
var ErrTokenDenied = errors.New("download token denied")

// downloadClaims are the claims minted for one document download
type downloadClaims struct {
	DocumentID uint   `json:"document_id"`
	Scope      string `json:"scope"`
	jwt.RegisteredClaims
}

// DownloadTokenService mints and verifies short-lived delegated tokens for
// the document content proxy
type DownloadTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadTokenService creates a token service signing with the portal's
// JWT secret
func NewDownloadTokenService(cfg *config.Config) *DownloadTokenService {
	return &DownloadTokenService{
		secret: []byte(cfg.JWTSecret),
		ttl:    15 * time.Minute,
	}
}

// Mint issues a read-scoped token for one document
func (s *DownloadTokenService) Mint(documentID uint) (string, error) {
	claims := downloadClaims{
		DocumentID: documentID,
		Scope:      DownloadScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "ackportal",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks a delegated token and returns the document it grants access to
func (s *DownloadTokenService) Verify(tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, ErrTokenDenied
	}

	token, err := jwt.ParseWithClaims(tokenString, &downloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrTokenDenied
	}

	claims, ok := token.Claims.(*downloadClaims)
	if !ok || claims.Scope != DownloadScope {
		return 0, ErrTokenDenied
	}

	return claims.DocumentID, nil
}
