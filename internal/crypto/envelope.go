package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

// EnvelopeKind identifies the shape of a private key envelope.
type EnvelopeKind int

const (
	// EnvelopeUnknown is the zero value and never returned by ParseEnvelope.
	EnvelopeUnknown EnvelopeKind = iota
	// EnvelopePEM is a passphrase protected PEM private key.
	EnvelopePEM
	// EnvelopeWrapped is an AES-CBC wrapped set of RSA components.
	EnvelopeWrapped
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopePEM:
		return "pem"
	case EnvelopeWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// Envelope is a parsed private key envelope. Exactly one of PEM and
// Wrapped is set, matching Kind.
type Envelope struct {
	Kind    EnvelopeKind
	PEM     *PEMPrivateKey
	Wrapped *WrappedPrivateKey
}

// PEMPrivateKey is the {"private": ...} envelope.
type PEMPrivateKey struct {
	Private string `json:"private"`
}

// KeyDerivation holds the PBKDF2 parameters of a wrapped envelope.
type KeyDerivation struct {
	PRF        string `json:"prf"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
}

// WrappedPrivateKey is the envelope whose ciphertext decrypts to
// [PrivateKeyComponents]. IV, Ciphertext, Salt and EncryptedKEK are base64.
type WrappedPrivateKey struct {
	IV             string         `json:"iv"`
	Ciphertext     string         `json:"ciphertext"`
	EncryptionFunc string         `json:"encryption_func,omitempty"`
	KeyDerivation  *KeyDerivation `json:"key_derivation_properties,omitempty"`
	EncryptedKEK   string         `json:"encryptedKEK,omitempty"`
}

// ParseEnvelope recognises the server's private_key field. The field is
// normally a JSON document; a bare PEM string is accepted as a PEM envelope.
func ParseEnvelope(privateKey string) (Envelope, error) {
	trimmed := strings.TrimSpace(privateKey)
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		return Envelope{Kind: EnvelopePEM, PEM: &PEMPrivateKey{Private: trimmed}}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrUnknownEnvelope, err)
	}

	if _, ok := fields["private"]; ok {
		var p PEMPrivateKey
		if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
			return Envelope{}, fmt.Errorf("%w: private: %v", ErrUnknownEnvelope, err)
		}
		if p.Private == "" {
			return Envelope{}, fmt.Errorf("%w: empty private field", ErrUnknownEnvelope)
		}
		return Envelope{Kind: EnvelopePEM, PEM: &p}, nil
	}

	if _, ok := fields["ciphertext"]; ok {
		var w WrappedPrivateKey
		if err := json.Unmarshal([]byte(trimmed), &w); err != nil {
			return Envelope{}, fmt.Errorf("%w: wrapped: %v", ErrUnknownEnvelope, err)
		}
		return Envelope{Kind: EnvelopeWrapped, Wrapped: &w}, nil
	}

	return Envelope{}, fmt.Errorf("%w: neither private nor ciphertext present", ErrUnknownEnvelope)
}

// NeedsKEK reports whether opening the envelope requires the encryption
// private key.
func (e Envelope) NeedsKEK() bool {
	return e.Kind == EnvelopeWrapped && e.Wrapped.EncryptedKEK != ""
}

// Open recovers the RSA private key. kekKey is only consulted for wrapped
// envelopes carrying an encryptedKEK and may otherwise be nil.
func (e Envelope) Open(passphrase string, kekKey *rsa.PrivateKey) (*rsa.PrivateKey, error) {
	switch e.Kind {
	case EnvelopePEM:
		return DecryptPEMPrivateKey([]byte(e.PEM.Private), passphrase)
	case EnvelopeWrapped:
		return e.Wrapped.Open(passphrase, kekKey)
	default:
		return nil, ErrUnknownEnvelope
	}
}

// DecryptPEMPrivateKey decrypts a passphrase protected RSA private key.
// Traditional OpenSSL encryption and PKCS#8 PBES2 are supported;
// unencrypted PKCS#1 and PKCS#8 blocks are returned as is.
func DecryptPEMPrivateKey(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	var der []byte
	switch {
	case block.Type == "ENCRYPTED PRIVATE KEY":
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("%w: PKCS#8: %v", ErrDecryptionFailed, err)
		}
		return validated(key)
	case x509.IsEncryptedPEMBlock(block):
		plain, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("%w: PEM: %v", ErrDecryptionFailed, err)
		}
		der = plain
	default:
		der = block.Bytes
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return validated(key)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		// Legacy PEM encryption has no integrity check beyond padding, so a
		// wrong passphrase usually lands here.
		return nil, fmt.Errorf("%w: parse private key: %v", ErrDecryptionFailed, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key (%T)", ErrInvalidKey, parsed)
	}
	return validated(key)
}

// Open decrypts the envelope. The AES key is the RSA-OAEP unwrapped KEK
// when EncryptedKEK is set and the PBKDF2-derived key otherwise.
func (w *WrappedPrivateKey) Open(passphrase string, kekKey *rsa.PrivateKey) (*rsa.PrivateKey, error) {
	aesKey, err := w.contentKey(passphrase, kekKey)
	if err != nil {
		return nil, err
	}

	iv, err := DecodeBase64(w.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	ciphertext, err := DecodeBase64(w.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	plaintext, err := DecryptCBC(aesKey, iv, ciphertext)
	if err != nil {
		return nil, err
	}

	var components PrivateKeyComponents
	if err := json.Unmarshal(plaintext, &components); err != nil {
		return nil, fmt.Errorf("%w: key JSON: %v", ErrDecryptionFailed, err)
	}
	return components.PrivateKey()
}

func (w *WrappedPrivateKey) contentKey(passphrase string, kekKey *rsa.PrivateKey) ([]byte, error) {
	if w.EncryptedKEK != "" {
		if kekKey == nil {
			return nil, ErrMissingKEKKey
		}
		wrapped, err := DecodeBase64(w.EncryptedKEK)
		if err != nil {
			return nil, fmt.Errorf("decode encryptedKEK: %w", err)
		}
		kek, err := UnwrapOAEP(kekKey, wrapped)
		if err != nil {
			return nil, err
		}
		if len(kek) != KEKSize {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrUnexpectedKEKLength, len(kek), KEKSize)
		}
		return kek, nil
	}

	kd := w.KeyDerivation
	if kd == nil || kd.Salt == "" || kd.Iterations == 0 {
		return nil, ErrMissingKeyDerivation
	}
	salt, err := DecodeBase64(kd.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	return DeriveKey(passphrase, salt, kd.Iterations, kd.PRF)
}

func validated(key *rsa.PrivateKey) (*rsa.PrivateKey, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key.Precompute()
	return key, nil
}
