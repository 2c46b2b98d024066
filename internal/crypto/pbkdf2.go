package crypto

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// DeriveKey stretches a passphrase into a 32-byte AES key with
// PBKDF2-HMAC. prf names the HMAC hash ("sha256", "SHA-256",
// "HMAC-SHA256" and so on); empty selects [DefaultPRF].
func DeriveKey(passphrase string, salt []byte, iterations int, prf string) ([]byte, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}

	h, err := prfHash(prf)
	if err != nil {
		return nil, err
	}

	return pbkdf2.Key([]byte(passphrase), salt, iterations, DerivedKeySize, h), nil
}

func prfHash(name string) (func() hash.Hash, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "hmac")
	n = strings.NewReplacer("-", "", "_", "", "/", "").Replace(n)

	switch n {
	case "":
		return prfHash(DefaultPRF)
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha384":
		return sha512.New384, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPRF, name)
	}
}
