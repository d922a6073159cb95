package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

// APIKeyPrefix marks shiftAuth API keys so they are recognisable in logs and
// secret scanners.
const APIKeyPrefix = "sak_"

const (
	apiKeyIDSize     = 12
	apiKeySecretSize = 32
	apiKeyRawSize    = apiKeyIDSize + apiKeySecretSize
)

// ErrMalformedAPIKey is returned when a presented API key cannot be decoded.
var ErrMalformedAPIKey = errors.New("malformed api key")

type APIKeyID [apiKeyIDSize]byte

func NewAPIKeyID() (APIKeyID, error) {
	var id APIKeyID
	_, err := rand.Read(id[:])
	return id, err
}

func (k APIKeyID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(k[:])
}

func NewAPIKeySecret() ([apiKeySecretSize]byte, error) {
	var secret [apiKeySecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// EncodeAPIKey packs the public key id and the secret into the token handed
// to the client. Only the id is stored in clear; the secret is stored hashed.
func EncodeAPIKey(id APIKeyID, secret [apiKeySecretSize]byte) string {
	var raw [apiKeyRawSize]byte
	copy(raw[:apiKeyIDSize], id[:])
	copy(raw[apiKeyIDSize:], secret[:])
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(raw[:])
}

// DecodeAPIKey splits a presented token into its key id and the encoded
// secret that was hashed at issuance.
func DecodeAPIKey(token string) (keyID string, secret string, err error) {
	body, ok := strings.CutPrefix(token, APIKeyPrefix)
	if !ok {
		return "", "", ErrMalformedAPIKey
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", "", ErrMalformedAPIKey
	}
	if len(raw) != apiKeyRawSize {
		return "", "", ErrMalformedAPIKey
	}

	var id APIKeyID
	copy(id[:], raw[:apiKeyIDSize])
	return id.String(), EncodeAPIKeySecret(raw[apiKeyIDSize:]), nil
}

// EncodeAPIKeySecret is the canonical string form of a secret, used as the
// input to the credential hasher.
func EncodeAPIKeySecret(secret []byte) string {
	return base64.RawURLEncoding.EncodeToString(secret)
}
