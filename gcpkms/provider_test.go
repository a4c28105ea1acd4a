package gcpkms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/rbaliyan/credseal"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type mockClient struct {
	keys       map[string][]byte // ciphertext -> plaintext
	failOn     string
	corrupt    bool
	lastName   string
	lastCRCSet bool
}

func (m *mockClient) Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error) {
	m.lastName = req.Name
	m.lastCRCSet = req.CiphertextCrc32C != nil && req.CiphertextCrc32C.Value == checksum(req.Ciphertext)

	ct := string(req.Ciphertext)
	if ct == m.failOn {
		return nil, fmt.Errorf("kms: permission denied")
	}
	plaintext, ok := m.keys[ct]
	if !ok {
		return nil, fmt.Errorf("kms: invalid ciphertext")
	}
	sum := checksum(plaintext)
	if m.corrupt {
		sum++
	}
	return &kmspb.DecryptResponse{
		Plaintext:       plaintext,
		PlaintextCrc32C: wrapperspb.Int64(sum),
	}, nil
}

const resource = "projects/p/locations/l/keyRings/r/cryptoKeys/k"

func makeKey(offset int) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + offset)
	}
	return key
}

func TestNew(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{"encrypted-1": makeKey(0)}}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("encrypted-1"), "primary", resource))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	current, err := provider.CurrentKey()
	if err != nil {
		t.Fatal(err)
	}
	if current.ID != "primary" {
		t.Errorf("CurrentKey().ID: got %q, want %q", current.ID, "primary")
	}
	if client.lastName != resource {
		t.Errorf("Name: got %q, want %q", client.lastName, resource)
	}
	if !client.lastCRCSet {
		t.Error("request checksum missing or wrong")
	}
}

func TestNewWithRotation(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{
		"encrypted-new": makeKey(0),
		"encrypted-old": makeKey(9),
	}}

	provider, err := New(context.Background(), client,
		WithEncryptedKey([]byte("encrypted-new"), "key-v2", resource),
		WithEncryptedKey([]byte("encrypted-old"), "key-v1", resource),
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
		keys:   map[string][]byte{"encrypted-1": first},
		failOn: "encrypted-2",
	}

	_, err := New(context.Background(), client,
		WithEncryptedKey([]byte("encrypted-1"), "key-1", resource),
		WithEncryptedKey([]byte("encrypted-2"), "key-2", resource),
	)
	if err == nil {
		t.Fatal("expected error for decrypt failure")
	}
	if !bytes.Equal(first, make([]byte, 32)) {
		t.Error("earlier decrypted key was not zeroed after failure")
	}
}

func TestNewIntegrityFailure(t *testing.T) {
	key := makeKey(0)
	client := &mockClient{keys: map[string][]byte{"encrypted": key}, corrupt: true}

	_, err := New(context.Background(), client, WithEncryptedKey([]byte("encrypted"), "key-1", resource))
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	if !bytes.Equal(key, make([]byte, 32)) {
		t.Error("plaintext not zeroed after integrity failure")
	}
}

func TestNewDecryptedKeyZeroed(t *testing.T) {
	key := makeKey(3)
	client := &mockClient{keys: map[string][]byte{"encrypted": key}}

	if _, err := New(context.Background(), client, WithEncryptedKey([]byte("encrypted"), "key-1", resource)); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !bytes.Equal(key, make([]byte, 32)) {
		t.Error("decrypted key material was not zeroed after construction")
	}
}

func TestNewWrongKeySize(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{"encrypted": make([]byte, 24)}}
	_, err := New(context.Background(), client, WithEncryptedKey([]byte("encrypted"), "key-1", resource))
	if !credseal.IsInvalidKeyMaterial(err) {
		t.Errorf("expected ErrInvalidKeyMaterial, got %v", err)
	}
}

func TestNewReturnsKeyProvider(t *testing.T) {
	client := &mockClient{keys: map[string][]byte{"encrypted": makeKey(0)}}
	provider, err := New(context.Background(), client, WithEncryptedKey([]byte("encrypted"), "key-1", resource))
	if err != nil {
		t.Fatal(err)
	}
	var _ credseal.KeyProvider = provider
}
