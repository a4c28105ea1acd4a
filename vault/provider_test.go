package vault

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/rbaliyan/credseal"
)

type mockClient struct {
	keys   map[string][]byte // "keyName:ciphertext" -> plaintext
	failOn string
}

func (m *mockClient) TransitDecrypt(ctx context.Context, keyName string, ciphertext string) ([]byte, error) {
	lookup := keyName + ":" + ciphertext
	if lookup == m.failOn {
		return nil, fmt.Errorf("vault: permission denied")
	}
	plaintext, ok := m.keys[lookup]
	if !ok {
		return nil, fmt.Errorf("vault: decryption failed")
	}
	return plaintext, nil
}

func makeKey(offset int) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + offset)
	}
	return key
}

func TestNew(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{
		"credseal:vault:v1:abc123": makeKey(0),
	}}

	provider, err := New(context.Background(), client,
		WithEncryptedKey("vault:v1:abc123", "primary", "credseal"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	current, err := provider.CurrentKey()
	if err != nil {
		t.Fatalf("CurrentKey: %v", err)
	}
	if current.ID != "primary" {
		t.Errorf("CurrentKey().ID: got %q, want %q", current.ID, "primary")
	}
}

func TestNewWithEncryptedSecret(t *testing.T) {
	secret := []byte(base64.StdEncoding.EncodeToString(makeKey(0)) + "\n")
	client := &mockClient{keys: map[string][]byte{
		"credseal:vault:v1:secret": secret,
	}}

	provider, err := New(context.Background(), client,
		WithEncryptedSecret("vault:v1:secret", "primary", "credseal"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !bytes.Equal(secret, make([]byte, len(secret))) {
		t.Error("secret text was not zeroed")
	}

	sealer, err := credseal.NewSealer(provider)
	if err != nil {
		t.Fatal(err)
	}
	token, err := sealer.Seal(context.Background(), "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	got, err := credseal.Decode(token, makeKey(0))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got) != "hunter2" {
		t.Errorf("got %q, want %q", got, "hunter2")
	}
}

func TestNewWithBadSecretText(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{
		"credseal:vault:v1:bad": []byte("not base64!"),
	}}
	_, err := New(context.Background(), client, WithEncryptedSecret("vault:v1:bad", "primary", "credseal"))
	if !credseal.IsInvalidKeyMaterial(err) {
		t.Errorf("expected ErrInvalidKeyMaterial, got %v", err)
	}
}

func TestNewWithRotation(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{
		"credseal:vault:v2:new": makeKey(0),
		"credseal:vault:v1:old": makeKey(40),
	}}

	provider, err := New(context.Background(), client,
		WithEncryptedKey("vault:v2:new", "key-v2", "credseal"),
		WithEncryptedKey("vault:v1:old", "key-v1", "credseal"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	current, _ := provider.CurrentKey()
	if current.ID != "key-v2" {
		t.Errorf("CurrentKey().ID: got %q, want %q", current.ID, "key-v2")
	}
	if _, err := provider.KeyByID("key-v1"); err != nil {
		t.Errorf("KeyByID(key-v1): %v", err)
	}
}

func TestNewNoKeys(t *testing.T) {
	if _, err := New(context.Background(), &mockClient{}); err == nil {
		t.Error("expected error for no keys")
	}
}

func TestNewDecryptFailure(t *testing.T) {
	first := makeKey(0)
	client := &mockClient{
		keys:   map[string][]byte{"credseal:vault:v1:ok": first},
		failOn: "credseal:vault:v1:denied",
	}

	_, err := New(context.Background(), client,
		WithEncryptedKey("vault:v1:ok", "key-1", "credseal"),
		WithEncryptedKey("vault:v1:denied", "key-2", "credseal"),
	)
	if err == nil {
		t.Fatal("expected error for decrypt failure")
	}
	if !bytes.Equal(first, make([]byte, 32)) {
		t.Error("earlier decrypted key was not zeroed after failure")
	}
}

func TestNewDecryptedKeyZeroed(t *testing.T) {
	key := makeKey(5)
	client := &mockClient{keys: map[string][]byte{"credseal:vault:v1:k": key}}

	if _, err := New(context.Background(), client, WithEncryptedKey("vault:v1:k", "key-1", "credseal")); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !bytes.Equal(key, make([]byte, 32)) {
		t.Error("decrypted key material was not zeroed after construction")
	}
}

func TestNewReturnsKeyProvider(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{"credseal:vault:v1:k": makeKey(0)}}
	provider, err := New(context.Background(), client, WithEncryptedKey("vault:v1:k", "key-1", "credseal"))
	if err != nil {
		t.Fatal(err)
	}
	var _ credseal.KeyProvider = provider
}
