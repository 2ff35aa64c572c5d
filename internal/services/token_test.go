package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(secret string, ttl time.Duration) *DownloadTokenService {
	return &DownloadTokenService{secret: []byte(secret), ttl: ttl}
}

func TestMintVerifyRoundtrip(t *testing.T) {
	svc := newTokenService("test-secret", 15*time.Minute)

	token, err := svc.Mint(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	docID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), docID)
}

func TestVerifyEmptyToken(t *testing.T) {
	svc := newTokenService("test-secret", 15*time.Minute)

	_, err := svc.Verify("")
	assert.ErrorIs(t, err, ErrTokenDenied)
}

func TestVerifyGarbageToken(t *testing.T) {
	svc := newTokenService("test-secret", 15*time.Minute)

	_, err := svc.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenDenied)
}

func TestVerifyWrongSecret(t *testing.T) {
	minter := newTokenService("secret-a", 15*time.Minute)
	verifier := newTokenService("secret-b", 15*time.Minute)

	token, err := minter.Mint(7)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrTokenDenied)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := newTokenService("test-secret", -1*time.Minute)

	token, err := svc.Mint(7)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenDenied)
}
