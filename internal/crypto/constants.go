package crypto

const (
	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESBlockSize is the AES block size, which is also the CBC IV size.
	AESBlockSize = 16

	// KEKSize is the required length of an unwrapped key-encryption key.
	KEKSize = 32

	// DerivedKeySize is the PBKDF2 output length.
	DerivedKeySize = AESKeySize

	// DefaultPRF is the PBKDF2 pseudo-random function assumed when an
	// envelope does not name one.
	DefaultPRF = "sha256"

	// MinRSAPublicExponent is the smallest public exponent accepted in a
	// parsed key.
	MinRSAPublicExponent = 3
)
