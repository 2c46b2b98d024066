package stashcat

import (
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/stashcat/client-go/internal/crypto"
)

// Decryptor decrypts message text and file contents with chat keys.
type Decryptor struct {
	index   ChatIndex
	keys    *KeyStore
	logger  zerolog.Logger
	metrics *Metrics
}

// NewDecryptor creates a decryptor over index and keys.
func NewDecryptor(index ChatIndex, keys *KeyStore, opts ...ComponentOption) *Decryptor {
	cfg := newComponentConfig(opts)
	return &Decryptor{
		index:   index,
		keys:    keys,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
}

// DecryptMessageText returns the plaintext of msg. Messages that are not
// encrypted, have no text, or live in an unencrypted chat are returned
// as-is. msg is never modified.
func (d *Decryptor) DecryptMessageText(chat ChatID, msg Message) (*string, error) {
	if !msg.IsEncrypted() || msg.Text == nil || *msg.Text == "" {
		return msg.Text, nil
	}

	text, err := d.decryptText(chat, msg)
	d.metrics.decryption("message", err)
	if err != nil {
		d.logger.Debug().Err(err).Stringer("chat", chat).Str("message", msg.ID).Msg("message decryption failed")
		return nil, err
	}
	return text, nil
}

func (d *Decryptor) decryptText(chat ChatID, msg Message) (*string, error) {
	info, err := d.lookup(chat)
	if err != nil {
		return nil, err
	}

	ciphertext, err := crypto.DecodeHex(*msg.Text)
	if err != nil {
		return nil, &ProtocolError{Reason: "message text is not hex", Err: err}
	}

	key, err := d.keys.GetOrUnwrap(chat, info.Key, info.Encrypted)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return msg.Text, nil
	}

	iv, err := crypto.DecodeOptionalHex(msg.IV)
	if err != nil {
		return nil, &ProtocolError{Reason: "message iv is not hex", Err: err}
	}

	plain, err := crypto.DecryptCBC(key, iv, ciphertext)
	if err != nil {
		return nil, wrapCryptoError("decrypt message", err)
	}
	if !utf8.Valid(plain) {
		return nil, &EncodingError{}
	}
	s := string(plain)
	return &s, nil
}

// DecryptFile decrypts raw, the downloaded contents of file. Unencrypted
// files and files in unencrypted chats are returned unchanged.
func (d *Decryptor) DecryptFile(chat ChatID, file File, raw []byte) ([]byte, error) {
	if !file.Encrypted {
		return raw, nil
	}

	out, err := d.decryptFile(chat, file, raw)
	d.metrics.decryption("file", err)
	return out, err
}

func (d *Decryptor) decryptFile(chat ChatID, file File, raw []byte) ([]byte, error) {
	info, err := d.lookup(chat)
	if err != nil {
		return nil, err
	}
	key, err := d.keys.GetOrUnwrap(chat, info.Key, info.Encrypted)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return raw, nil
	}

	iv, err := crypto.DecodeOptionalHex(file.IV)
	if err != nil {
		return nil, &ProtocolError{Reason: "file iv is not hex", Err: err}
	}
	plain, err := crypto.DecryptCBC(key, iv, raw)
	if err != nil {
		return nil, wrapCryptoError("decrypt file", err)
	}
	return plain, nil
}

func (d *Decryptor) lookup(chat ChatID) (ChatInfo, error) {
	info, ok := d.index.Lookup(chat)
	if !ok {
		return ChatInfo{}, &ValueError{Field: "chat", Message: "unknown " + chat.String()}
	}
	return info, nil
}
