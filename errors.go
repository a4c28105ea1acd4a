package credseal

import "errors"

var (
	// ErrInvalidKeyMaterial is returned when the configured secret is missing, is not valid
	// base64, or does not decode to exactly 32 bytes.
	ErrInvalidKeyMaterial = errors.New("credseal: invalid key material")

	// ErrEncryptionFailure is returned when the AEAD primitive or the nonce source fails.
	ErrEncryptionFailure = errors.New("credseal: encryption failed")

	// ErrEnvironmentUnsupported is returned when no cryptographic provider is available.
	ErrEnvironmentUnsupported = errors.New("credseal: no cryptographic provider available")

	// ErrAuthenticationFailure is returned when a token is malformed, truncated, or fails
	// tag verification.
	ErrAuthenticationFailure = errors.New("credseal: authentication failed")

	// ErrPlaintextTooLarge is returned when a plaintext exceeds the sealer's size limit.
	ErrPlaintextTooLarge = errors.New("credseal: plaintext too large")

	// ErrInvalidKeyID is returned when a key ID is empty or duplicated.
	ErrInvalidKeyID = errors.New("credseal: invalid key ID")

	// ErrKeyNotFound is returned when a provider has no key to hand out.
	ErrKeyNotFound = errors.New("credseal: key not found")
)

// IsInvalidKeyMaterial returns true if the error is or wraps ErrInvalidKeyMaterial.
func IsInvalidKeyMaterial(err error) bool {
	return errors.Is(err, ErrInvalidKeyMaterial)
}

// IsEncryptionFailure returns true if the error is or wraps ErrEncryptionFailure.
func IsEncryptionFailure(err error) bool {
	return errors.Is(err, ErrEncryptionFailure)
}

// IsEnvironmentUnsupported returns true if the error is or wraps ErrEnvironmentUnsupported.
func IsEnvironmentUnsupported(err error) bool {
	return errors.Is(err, ErrEnvironmentUnsupported)
}

// IsAuthenticationFailure returns true if the error is or wraps ErrAuthenticationFailure.
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrAuthenticationFailure)
}

// IsPlaintextTooLarge returns true if the error is or wraps ErrPlaintextTooLarge.
func IsPlaintextTooLarge(err error) bool {
	return errors.Is(err, ErrPlaintextTooLarge)
}

// IsInvalidKeyID returns true if the error is or wraps ErrInvalidKeyID.
func IsInvalidKeyID(err error) bool {
	return errors.Is(err, ErrInvalidKeyID)
}

// IsKeyNotFound returns true if the error is or wraps ErrKeyNotFound.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// errorKind returns a short, stable label for err used in logs and metric attributes.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidKeyMaterial):
		return "invalid_key_material"
	case errors.Is(err, ErrEncryptionFailure):
		return "encryption_failure"
	case errors.Is(err, ErrEnvironmentUnsupported):
		return "environment_unsupported"
	case errors.Is(err, ErrAuthenticationFailure):
		return "authentication_failure"
	case errors.Is(err, ErrPlaintextTooLarge):
		return "plaintext_too_large"
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	default:
		return "error"
	}
}
