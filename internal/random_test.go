package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestAPIKeyRoundTrip(t *testing.T) {
	id, err := NewAPIKeyID()
	if err != nil {
		t.Fatalf("NewAPIKeyID: %v", err)
	}
	secret, err := NewAPIKeySecret()
	if err != nil {
		t.Fatalf("NewAPIKeySecret: %v", err)
	}

	token := EncodeAPIKey(id, secret)
	if !strings.HasPrefix(token, APIKeyPrefix) {
		t.Fatalf("expected %q prefix, got %q", APIKeyPrefix, token)
	}

	gotID, gotSecret, err := DecodeAPIKey(token)
	if err != nil {
		t.Fatalf("DecodeAPIKey: %v", err)
	}
	if gotID != id.String() {
		t.Fatalf("key id mismatch: got %q want %q", gotID, id.String())
	}
	if gotSecret != EncodeAPIKeySecret(secret[:]) {
		t.Fatal("secret mismatch")
	}
}

func TestDecodeAPIKeyRejectsMalformed(t *testing.T) {
	for _, token := range []string{
		"",
		"sak_",
		"sak_!!!",
		"sak_dG9vLXNob3J0",
		"pk_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
	} {
		if _, _, err := DecodeAPIKey(token); !errors.Is(err, ErrMalformedAPIKey) {
			t.Fatalf("DecodeAPIKey(%q): expected ErrMalformedAPIKey, got %v", token, err)
		}
	}
}
