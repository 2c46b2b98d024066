package crypto

import "errors"

var (
	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidIVSize is returned when an IV is present but is not one block long.
	ErrInvalidIVSize = errors.New("invalid IV size")

	// ErrInvalidCiphertextSize is returned when the ciphertext is empty or
	// not a whole number of blocks.
	ErrInvalidCiphertextSize = errors.New("invalid ciphertext size")

	// ErrInvalidPadding is returned when PKCS#7 padding does not check out.
	// With CBC this is the usual symptom of a wrong key.
	ErrInvalidPadding = errors.New("invalid padding")

	// ErrDecryptionFailed is returned when an RSA or PEM decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidPEM is returned when no usable PEM block is found.
	ErrInvalidPEM = errors.New("invalid PEM data")

	// ErrInvalidKey is returned when key material parses but is not a
	// consistent RSA key.
	ErrInvalidKey = errors.New("invalid RSA key")

	// ErrUnexpectedKEKLength is returned when an unwrapped KEK is not 32 bytes.
	ErrUnexpectedKEKLength = errors.New("unexpected KEK length")

	// ErrInvalidSignature is returned when a verification tag cannot be
	// interpreted for the given key.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMissingKeyDerivation is returned when a wrapped envelope carries
	// neither derivation parameters nor a KEK.
	ErrMissingKeyDerivation = errors.New("missing key derivation parameters")

	// ErrMissingKEKKey is returned when an envelope needs a KEK unwrap but
	// no encryption private key is available yet.
	ErrMissingKEKKey = errors.New("encryptedKEK present but no encryption key to unwrap it")

	// ErrUnsupportedPRF is returned for PBKDF2 PRF names this package does
	// not implement.
	ErrUnsupportedPRF = errors.New("unsupported PRF")

	// ErrInvalidIterations is returned when the PBKDF2 iteration count is not positive.
	ErrInvalidIterations = errors.New("invalid iteration count")

	// ErrUnknownEnvelope is returned when a private key envelope matches
	// neither the PEM nor the wrapped shape.
	ErrUnknownEnvelope = errors.New("unknown private key envelope")
)

// IsProtocolError reports whether err stems from an envelope whose shape
// or parameters are not understood, as opposed to a failed cryptographic
// operation.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrMissingKeyDerivation) ||
		errors.Is(err, ErrMissingKEKKey) ||
		errors.Is(err, ErrUnsupportedPRF) ||
		errors.Is(err, ErrInvalidIterations) ||
		errors.Is(err, ErrUnknownEnvelope)
}
