package stashcat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ChatKind distinguishes channels from conversations. IDs of the two
// kinds live in separate namespaces.
type ChatKind int

const (
	// KindChannel is a company channel.
	KindChannel ChatKind = iota + 1
	// KindConversation is a direct or group conversation.
	KindConversation
)

func (k ChatKind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindConversation:
		return "conversation"
	default:
		return fmt.Sprintf("ChatKind(%d)", int(k))
	}
}

// ParseChatKind parses "channel" or "conversation".
func ParseChatKind(s string) (ChatKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "channel", "channels":
		return KindChannel, nil
	case "conversation", "conversations", "conv":
		return KindConversation, nil
	default:
		return 0, &ValueError{Field: "chat kind", Message: fmt.Sprintf("unknown kind %q", s)}
	}
}

// ChatID identifies a chat. It is comparable and usable as a map key.
type ChatID struct {
	Kind ChatKind
	ID   string
}

// ChannelID returns the ChatID of a channel.
func ChannelID(id string) ChatID {
	return ChatID{Kind: KindChannel, ID: id}
}

// ConversationID returns the ChatID of a conversation.
func ConversationID(id string) ChatID {
	return ChatID{Kind: KindConversation, ID: id}
}

func (c ChatID) String() string {
	return c.Kind.String() + ":" + c.ID
}

// ParseChatID parses the "kind:id" form produced by String.
func ParseChatID(s string) (ChatID, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return ChatID{}, &ValueError{Field: "chat id", Message: fmt.Sprintf("want kind:id, got %q", s)}
	}
	k, err := ParseChatKind(kind)
	if err != nil {
		return ChatID{}, err
	}
	return ChatID{Kind: k, ID: id}, nil
}

// ChatInfo is the metadata the decryptor needs about a chat.
type ChatInfo struct {
	ID        ChatID
	Name      string
	CompanyID string
	Encrypted bool
	// Key is the chat's AES key wrapped for the current user, base64.
	Key *string
}

// Company is a company the user belongs to.
type Company struct {
	ID   string
	Name string
}

// ChatIndex resolves chat metadata.
type ChatIndex interface {
	Lookup(chat ChatID) (ChatInfo, bool)
}

// MemoryIndex is an in-memory ChatIndex. It is safe for concurrent use.
type MemoryIndex struct {
	mu    sync.RWMutex
	chats map[ChatID]ChatInfo
}

// NewMemoryIndex returns an index holding chats.
func NewMemoryIndex(chats ...ChatInfo) *MemoryIndex {
	idx := &MemoryIndex{chats: make(map[ChatID]ChatInfo, len(chats))}
	idx.Put(chats...)
	return idx
}

// Put inserts or replaces chats.
func (m *MemoryIndex) Put(chats ...ChatInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chats {
		m.chats[c.ID] = c
	}
}

// Replace drops every chat of kind and inserts chats in their place.
func (m *MemoryIndex) Replace(kind ChatKind, chats []ChatInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.chats {
		if id.Kind == kind {
			delete(m.chats, id)
		}
	}
	for _, c := range chats {
		m.chats[c.ID] = c
	}
}

// Lookup implements ChatIndex.
func (m *MemoryIndex) Lookup(chat ChatID) (ChatInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.chats[chat]
	return info, ok
}

// Len returns the number of chats.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chats)
}

// All returns every chat, channels first, each kind ordered by ID.
func (m *MemoryIndex) All() []ChatInfo {
	m.mu.RLock()
	out := make([]ChatInfo, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, c)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b ChatInfo) int {
		if c := cmp.Compare(a.ID.Kind, b.ID.Kind); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a.ID.ID), len(b.ID.ID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.ID, b.ID.ID)
	})
	return out
}
