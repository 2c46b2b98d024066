package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// VerifyRawSHA256 reports whether sig is the raw RSA signature of the
// SHA-256 digest of content under pub. The check computes sig^e mod n and
// compares it with the digest as big-endian integers of the key size.
func VerifyRawSHA256(pub *rsa.PublicKey, content, sig []byte) bool {
	m, err := publicRaw(pub, sig)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(content)
	want := make([]byte, len(m))
	if len(want) < len(digest) {
		return false
	}
	copy(want[len(want)-len(digest):], digest[:])

	return subtle.ConstantTimeCompare(m, want) == 1
}

// publicRaw applies the unpadded RSA public operation and returns the
// result left-padded to the modulus size.
func publicRaw(pub *rsa.PublicKey, sig []byte) ([]byte, error) {
	if pub == nil || pub.N == nil {
		return nil, fmt.Errorf("%w: no public key", ErrInvalidKey)
	}
	if len(sig) == 0 || len(sig) > pub.Size() {
		return nil, fmt.Errorf("%w: length %d for %d-byte modulus", ErrInvalidSignature, len(sig), pub.Size())
	}

	s := new(big.Int).SetBytes(sig)
	if s.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("%w: value exceeds modulus", ErrInvalidSignature)
	}

	m := new(big.Int).Exp(s, big.NewInt(int64(pub.E)), pub.N)
	return m.FillBytes(make([]byte, pub.Size())), nil
}
