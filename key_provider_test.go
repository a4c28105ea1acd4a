package credseal

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func testSecret(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestDecodeSecret(t *testing.T) {
	key := makeKey(32)
	got, err := DecodeSecret(testSecret(key))
	if err != nil {
		t.Fatalf("DecodeSecret: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("decoded key mismatch")
	}
}

func TestDecodeSecretTrimsWhitespace(t *testing.T) {
	key := makeKey(32)
	got, err := DecodeSecret("  " + testSecret(key) + "\n")
	if err != nil {
		t.Fatalf("DecodeSecret: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Error("decoded key mismatch")
	}
}

func TestDecodeSecretWrongLength(t *testing.T) {
	for _, n := range []int{1, 16, 31, 33, 64} {
		got, err := DecodeSecret(testSecret(makeKey(n)))
		if !IsInvalidKeyMaterial(err) {
			t.Errorf("%d bytes: expected ErrInvalidKeyMaterial, got %v", n, err)
		}
		if got != nil {
			t.Errorf("%d bytes: returned %d bytes of key material alongside error", n, len(got))
		}
	}
}

func TestDecodeSecretEmpty(t *testing.T) {
	for _, s := range []string{"", "   ", "\n"} {
		_, err := DecodeSecret(s)
		if !IsInvalidKeyMaterial(err) {
			t.Errorf("%q: expected ErrInvalidKeyMaterial, got %v", s, err)
		}
	}
}

func TestDecodeSecretMalformed(t *testing.T) {
	secret := "this*is*not*base64"
	_, err := DecodeSecret(secret)
	if !IsInvalidKeyMaterial(err) {
		t.Fatalf("expected ErrInvalidKeyMaterial, got %v", err)
	}
	if strings.Contains(err.Error(), secret) {
		t.Error("error message contains the secret")
	}
}

func TestDecodeSecretURLAlphabetRejected(t *testing.T) {
	key := bytes.Repeat([]byte{0xFB, 0xFF}, 16)
	_, err := DecodeSecret(base64.URLEncoding.EncodeToString(key))
	if !IsInvalidKeyMaterial(err) {
		t.Errorf("expected ErrInvalidKeyMaterial, got %v", err)
	}
}

func TestEncodeSecretRoundTrip(t *testing.T) {
	key := makeKey(32)
	got, err := DecodeSecret(EncodeSecret(key))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, key) {
		t.Error("round trip mismatch")
	}
}

func TestNewKeyProviderFromConfig(t *testing.T) {
	p, err := NewKeyProvider(Config{
		Secret: testSecret(makeKey(32)),
		RetiredSecrets: map[string]string{
			"2024-b": testSecret(offsetKey(2)),
			"2024-a": testSecret(offsetKey(1)),
		},
	})
	if err != nil {
		t.Fatalf("NewKeyProvider: %v", err)
	}

	keys, err := p.Keys()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{DefaultKeyID, "2024-a", "2024-b"}
	if len(keys) != len(want) {
		t.Fatalf("Keys: got %d, want %d", len(keys), len(want))
	}
	for i, id := range want {
		if keys[i].ID != id {
			t.Errorf("Keys[%d].ID: got %q, want %q", i, keys[i].ID, id)
		}
	}
	if !bytes.Equal(openKey(t, keys[1]), offsetKey(1)) {
		t.Error("retired key material mismatch")
	}
}

func TestNewKeyProviderCustomKeyID(t *testing.T) {
	p, err := NewKeyProvider(Config{Secret: testSecret(makeKey(32)), KeyID: "k-7"})
	if err != nil {
		t.Fatal(err)
	}
	current, _ := p.CurrentKey()
	if current.ID != "k-7" {
		t.Errorf("CurrentKey().ID: got %q, want %q", current.ID, "k-7")
	}
}

func TestNewKeyProviderMissingSecret(t *testing.T) {
	_, err := NewKeyProvider(Config{})
	if !IsInvalidKeyMaterial(err) {
		t.Errorf("expected ErrInvalidKeyMaterial, got %v", err)
	}
}

func TestNewKeyProviderBadRetiredSecret(t *testing.T) {
	_, err := NewKeyProvider(Config{
		Secret:         testSecret(makeKey(32)),
		RetiredSecrets: map[string]string{"old": testSecret(makeKey(31))},
	})
	if !IsInvalidKeyMaterial(err) {
		t.Errorf("expected ErrInvalidKeyMaterial, got %v", err)
	}
	if !strings.Contains(err.Error(), `"old"`) {
		t.Errorf("error should name the retired key: %v", err)
	}
}
