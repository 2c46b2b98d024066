package stashcat

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stashcat/client-go/internal/crypto"
)

// KeyStore caches unwrapped chat keys. Each chat's key is unwrapped at
// most once even under concurrent access; failures are not cached.
type KeyStore struct {
	unwrapper KeyUnwrapper
	logger    zerolog.Logger
	metrics   *Metrics

	mu    sync.RWMutex
	keys  map[ChatID][]byte
	group singleflight.Group
}

// NewKeyStore creates a key store that unwraps with unwrapper. Keys are
// never evicted; a new session needs a new KeyStore.
func NewKeyStore(unwrapper KeyUnwrapper, opts ...ComponentOption) (*KeyStore, error) {
	if unwrapper == nil {
		return nil, &ValueError{Field: "unwrapper", Message: "must not be nil"}
	}
	if state, ok := unwrapper.(*EncryptionState); ok && state == nil {
		return nil, &ValueError{Field: "unwrapper", Message: "encryption state is nil"}
	}
	cfg := newComponentConfig(opts)
	return &KeyStore{
		unwrapper: unwrapper,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		keys:      make(map[ChatID][]byte),
	}, nil
}

// GetOrUnwrap returns the AES key of chat. It returns nil without error
// for unencrypted chats. wrappedKey is the chat's base64 RSA-wrapped key
// and is only consulted on a cache miss.
func (s *KeyStore) GetOrUnwrap(chat ChatID, wrappedKey *string, encrypted bool) ([]byte, error) {
	if !encrypted {
		return nil, nil
	}

	if key, ok := s.cached(chat); ok {
		s.metrics.chatKey("cached")
		return key, nil
	}

	v, err, _ := s.group.Do(chat.String(), func() (any, error) {
		if key, ok := s.cached(chat); ok {
			return key, nil
		}
		key, err := s.unwrap(chat, wrappedKey)
		if err != nil {
			s.metrics.chatKey("failed")
			return nil, err
		}
		s.mu.Lock()
		s.keys[chat] = key
		s.mu.Unlock()
		s.metrics.chatKey("unwrapped")
		s.logger.Debug().Stringer("chat", chat).Msg("chat key unwrapped")
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]byte)), nil
}

func (s *KeyStore) unwrap(chat ChatID, wrappedKey *string) ([]byte, error) {
	if wrappedKey == nil || *wrappedKey == "" {
		return nil, &ValueError{Field: "chat key", Message: "encrypted " + chat.String() + " has no key"}
	}
	wrapped, err := crypto.DecodeBase64(*wrappedKey)
	if err != nil {
		return nil, &ProtocolError{Reason: "chat key is not base64", Err: err}
	}
	key, err := s.unwrapper.UnwrapChatKey(wrapped)
	if err != nil {
		return nil, wrapCryptoError("unwrap chat key", err)
	}
	if len(key) != crypto.AESKeySize {
		return nil, &CryptoError{Op: "unwrap chat key", Err: crypto.ErrInvalidKeySize}
	}
	return key, nil
}

func (s *KeyStore) cached(chat ChatID) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[chat]
	if !ok {
		return nil, false
	}
	return clone(key), true
}

// Len returns the number of cached keys.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
