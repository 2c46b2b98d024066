package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
)

var (
	keysOnce sync.Once
	keyA     *rsa.PrivateKey
	keyB     *rsa.PrivateKey
	keysErr  error
)

// testKeys returns two RSA-2048 keys shared by every test in the package.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		keyA, keysErr = rsa.GenerateKey(rand.Reader, 2048)
		if keysErr != nil {
			return
		}
		keyB, keysErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keysErr != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", keysErr)
	}
	return keyA, keyB
}

func wrapOAEP(t *testing.T, pub *rsa.PublicKey, data []byte) []byte {
	t.Helper()
	out, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, data, nil)
	if err != nil {
		t.Fatalf("rsa.EncryptOAEP() error = %v", err)
	}
	return out
}

// signRaw produces the raw RSA tag over SHA-256(content).
func signRaw(priv *rsa.PrivateKey, content []byte) []byte {
	digest := sha256.Sum256(content)
	h := new(big.Int).SetBytes(digest[:])
	s := new(big.Int).Exp(h, priv.D, priv.N)
	return s.FillBytes(make([]byte, priv.Size()))
}

// wrappedEnvelope seals priv the way the server does for the "jwk" format.
// A non-nil kek replaces the passphrase-derived key.
func wrappedEnvelope(t *testing.T, priv *rsa.PrivateKey, passphrase string, kek []byte, kekHolder *rsa.PublicKey) WrappedPrivateKey {
	t.Helper()

	plaintext, err := json.Marshal(PrivateKeyComponentsOf(priv))
	if err != nil {
		t.Fatal(err)
	}
	iv := randomBytes(t, AESBlockSize)

	w := WrappedPrivateKey{
		IV:             ToBase64(iv),
		EncryptionFunc: "AES-CBC",
	}

	aesKey := kek
	if kek == nil {
		salt := randomBytes(t, 16)
		aesKey, err = DeriveKey(passphrase, salt, 1000, "SHA-256")
		if err != nil {
			t.Fatal(err)
		}
		w.KeyDerivation = &KeyDerivation{PRF: "SHA-256", Iterations: 1000, Salt: ToBase64(salt)}
	} else {
		w.EncryptedKEK = ToBase64(wrapOAEP(t, kekHolder, kek))
	}

	// A short test KEK cannot seal anything; the envelope is still built
	// so the length check can be exercised.
	if len(aesKey) == AESKeySize {
		ciphertext, err := EncryptCBC(aesKey, iv, plaintext)
		if err != nil {
			t.Fatal(err)
		}
		w.Ciphertext = ToBase64(ciphertext)
	} else {
		w.Ciphertext = ToBase64(randomBytes(t, 64))
	}
	return w
}
