package stashcat

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"

	"github.com/youmark/pkcs8"

	"github.com/stashcat/client-go/internal/crypto"
)

const testPassphrase = "correct horse battery staple"

var (
	keysOnce   sync.Once
	encKey     *rsa.PrivateKey
	signKey    *rsa.PrivateKey
	keysErr    error
	testChatID = ConversationID("42")
)

// testKeys returns an encryption and a signing key shared by the package.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		encKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
		if keysErr != nil {
			return
		}
		signKey, keysErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keysErr != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", keysErr)
	}
	return encKey, signKey
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatal(err)
	}
	return b
}

func strptr(s string) *string { return &s }

func boolptr(b bool) *bool { return &b }

// wrapChatKey seals key for pub the way the server stores chat keys.
func wrapChatKey(t *testing.T, pub *rsa.PublicKey, key []byte) string {
	t.Helper()
	out, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, key, nil)
	if err != nil {
		t.Fatalf("rsa.EncryptOAEP() error = %v", err)
	}
	return crypto.ToBase64(out)
}

// encryptText returns the hex ciphertext of plaintext under key and iv.
func encryptText(t *testing.T, key, iv []byte, plaintext string) string {
	t.Helper()
	ct, err := crypto.EncryptCBC(key, iv, []byte(plaintext))
	if err != nil {
		t.Fatalf("EncryptCBC() error = %v", err)
	}
	return hex.EncodeToString(ct)
}

// signRaw produces the raw RSA tag over SHA-256(content), hex encoded.
func signRaw(priv *rsa.PrivateKey, content []byte) string {
	digest := sha256.Sum256(content)
	h := new(big.Int).SetBytes(digest[:])
	s := new(big.Int).Exp(h, priv.D, priv.N)
	return hex.EncodeToString(s.FillBytes(make([]byte, priv.Size())))
}

// sealWrapped builds a wrapped envelope document for priv. A non-nil
// kekHolder seals a random KEK for it instead of deriving from passphrase.
func sealWrapped(t *testing.T, priv *rsa.PrivateKey, passphrase string, kekHolder *rsa.PublicKey) string {
	t.Helper()

	plaintext, err := json.Marshal(crypto.PrivateKeyComponentsOf(priv))
	if err != nil {
		t.Fatal(err)
	}
	iv := randomBytes(t, crypto.AESBlockSize)
	w := crypto.WrappedPrivateKey{IV: crypto.ToBase64(iv), EncryptionFunc: "AES-CBC"}

	var aesKey []byte
	if kekHolder != nil {
		aesKey = randomBytes(t, crypto.KEKSize)
		w.EncryptedKEK = wrapChatKey(t, kekHolder, aesKey)
	} else {
		salt := randomBytes(t, 16)
		aesKey, err = crypto.DeriveKey(passphrase, salt, 1000, "SHA-256")
		if err != nil {
			t.Fatal(err)
		}
		w.KeyDerivation = &crypto.KeyDerivation{PRF: "SHA-256", Iterations: 1000, Salt: crypto.ToBase64(salt)}
	}

	ct, err := crypto.EncryptCBC(aesKey, iv, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	w.Ciphertext = crypto.ToBase64(ct)

	doc, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	return string(doc)
}

// sealPEM builds a {"private": ...} envelope holding a PKCS#8 encrypted PEM.
func sealPEM(t *testing.T, priv *rsa.PrivateKey, passphrase string) string {
	t.Helper()
	der, err := pkcs8.MarshalPrivateKey(priv, []byte(passphrase), nil)
	if err != nil {
		t.Fatalf("pkcs8.MarshalPrivateKey() error = %v", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der})
	doc, err := json.Marshal(map[string]string{"private": string(block)})
	if err != nil {
		t.Fatal(err)
	}
	return string(doc)
}

// publicJWK returns pub as the JSON public key document the server stores.
func publicJWK(t *testing.T, pub *rsa.PublicKey) string {
	t.Helper()
	doc, err := json.Marshal(crypto.PublicKeyJWKOf(pub))
	if err != nil {
		t.Fatal(err)
	}
	return string(doc)
}

// unlockedState returns an EncryptionState over the test keys.
func unlockedState(t *testing.T) *EncryptionState {
	t.Helper()
	enc, sign := testKeys(t)
	state, err := NewEncryptionState(enc, sign)
	if err != nil {
		t.Fatal(err)
	}
	return state
}

func newTestKeyStore(t *testing.T, u KeyUnwrapper, opts ...ComponentOption) *KeyStore {
	t.Helper()
	store, err := NewKeyStore(u, opts...)
	if err != nil {
		t.Fatalf("NewKeyStore() error = %v", err)
	}
	return store
}
