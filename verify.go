package stashcat

import (
	"crypto/rsa"

	"github.com/stashcat/client-go/internal/crypto"
)

// Verify checks msg's verification tag against the sender's public
// signing key. A message without a tag verifies trivially and key is not
// consulted. A malformed tag verifies as false.
//
// The signed content is the hex-decoded ciphertext for encrypted
// messages and the UTF-8 text otherwise.
func Verify(msg Message, key *rsa.PublicKey) (bool, error) {
	if msg.Verification == nil || *msg.Verification == "" {
		return true, nil
	}
	if key == nil {
		return false, &ProtocolError{Reason: "no signing key for sender of message " + msg.ID}
	}

	sig, err := crypto.DecodeHex(*msg.Verification)
	if err != nil {
		return false, nil
	}

	var content []byte
	if msg.Text != nil {
		if msg.IsEncrypted() {
			content, err = crypto.DecodeHex(*msg.Text)
			if err != nil {
				return false, &ProtocolError{Reason: "message text is not hex", Err: err}
			}
		} else {
			content = []byte(*msg.Text)
		}
	}

	return crypto.VerifyRawSHA256(key, content, sig), nil
}
