package stashcat

import (
	"crypto/rsa"
	"errors"
	"strings"

	"github.com/stashcat/client-go/internal/crypto"
)

var errKeyMismatch = errors.New("public key does not match private key")

// KeyEnvelope is one key record as the server stores it. Private holds
// the serialized envelope document; Public is PEM or JWK JSON and may be
// empty, in which case the private key's public half is used.
type KeyEnvelope struct {
	Private string
	Public  string
}

// EnvelopeSet groups the user's key envelopes. The signing key is
// optional; when it is wrapped with a key-encryption key, that key is
// unwrapped with the encryption private key.
type EnvelopeSet struct {
	Encryption KeyEnvelope
	Signing    *KeyEnvelope
}

type keyPair struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// EncryptionState holds the user's unlocked private keys. It is
// immutable once built and safe for concurrent use.
type EncryptionState struct {
	encryption keyPair
	signing    *keyPair
}

// KeyUnwrapper recovers a chat's AES key from its RSA-wrapped form.
type KeyUnwrapper interface {
	UnwrapChatKey(wrapped []byte) ([]byte, error)
}

// Unlock opens the envelopes in set with passphrase. The encryption key
// is opened first since the signing key may depend on it.
func Unlock(passphrase string, set EnvelopeSet) (*EncryptionState, error) {
	enc, err := openKeyPair("encryption", set.Encryption, passphrase, nil)
	if err != nil {
		return nil, err
	}

	state := &EncryptionState{encryption: enc}
	if set.Signing != nil {
		sign, err := openKeyPair("signing", *set.Signing, passphrase, enc.private)
		if err != nil {
			return nil, err
		}
		state.signing = &sign
	}
	return state, nil
}

// NewEncryptionState builds a state from already-decrypted keys. signing
// may be nil.
func NewEncryptionState(encryption, signing *rsa.PrivateKey) (*EncryptionState, error) {
	if encryption == nil {
		return nil, &ValueError{Field: "encryption key", Message: "must not be nil"}
	}
	state := &EncryptionState{
		encryption: keyPair{private: encryption, public: &encryption.PublicKey},
	}
	if signing != nil {
		state.signing = &keyPair{private: signing, public: &signing.PublicKey}
	}
	return state, nil
}

func openKeyPair(role string, env KeyEnvelope, passphrase string, kekKey *rsa.PrivateKey) (keyPair, error) {
	parsed, err := crypto.ParseEnvelope(env.Private)
	if err != nil {
		return keyPair{}, &ProtocolError{Reason: role + " key envelope", Err: err}
	}

	priv, err := parsed.Open(passphrase, kekKey)
	if err != nil {
		if crypto.IsProtocolError(err) {
			return keyPair{}, &ProtocolError{Reason: role + " key envelope", Err: err}
		}
		return keyPair{}, &CryptoError{
			Op:              "unlock " + role + " key",
			Err:             err,
			wrongPassphrase: !parsed.NeedsKEK(),
		}
	}

	pub := &priv.PublicKey
	if strings.TrimSpace(env.Public) != "" {
		pub, err = crypto.ParsePublicKey(env.Public)
		if err != nil {
			return keyPair{}, &CryptoError{Op: "parse " + role + " public key", Err: err}
		}
		if !pub.Equal(&priv.PublicKey) {
			return keyPair{}, &CryptoError{Op: "check " + role + " key pair", Err: errKeyMismatch}
		}
	}
	return keyPair{private: priv, public: pub}, nil
}

// UnwrapChatKey implements KeyUnwrapper with RSA-OAEP (SHA-1).
func (s *EncryptionState) UnwrapChatKey(wrapped []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrLocked
	}
	key, err := crypto.UnwrapOAEP(s.encryption.private, wrapped)
	if err != nil {
		return nil, wrapCryptoError("unwrap chat key", err)
	}
	return key, nil
}

// EncryptionPublicKey returns the public half of the encryption key.
func (s *EncryptionState) EncryptionPublicKey() *rsa.PublicKey {
	return s.encryption.public
}

// HasSigningKey reports whether a signing key was unlocked.
func (s *EncryptionState) HasSigningKey() bool {
	return s.signing != nil
}

// SigningPublicKey returns the public half of the signing key, or nil.
func (s *EncryptionState) SigningPublicKey() *rsa.PublicKey {
	if s.signing == nil {
		return nil
	}
	return s.signing.public
}
