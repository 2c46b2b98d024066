package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the JSON wrapper around every API response.
type Envelope struct {
	Status    Status          `json:"status"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature,omitempty"`
}

// Status is the status block of an [Envelope].
type Status struct {
	Value        string `json:"value"`
	ShortMessage string `json:"short_message"`
	Message      string `json:"message"`
}

// FlexString is a string the server may send as a JSON string, a JSON
// number or null.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("FlexString: %w", err)
		}
		*f = FlexString(n.String())
		return nil
	}
}

func (f FlexString) String() string {
	return string(f)
}

// LoginResponse is the /auth/login payload.
type LoginResponse struct {
	ClientKey string `json:"client_key"`
	UserInfo  User   `json:"userinfo"`
}

// User is a user record as returned by /users/me, /users/info and inside
// messages and conversations.
type User struct {
	ID               FlexString `json:"id"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Image            string     `json:"image,omitempty"`
	Online           bool       `json:"online,omitempty"`
	Language         string     `json:"language,omitempty"`
	PublicKey        string     `json:"public_key,omitempty"`
	PublicSigningKey string     `json:"public_signing_key,omitempty"`
}

type userResponse struct {
	User User `json:"user"`
}

// Company is a company membership from /company/member.
type Company struct {
	ID       FlexString `json:"id"`
	Name     string     `json:"name"`
	Domain   string     `json:"domain,omitempty"`
	Features []string   `json:"features,omitempty"`
}

type companiesResponse struct {
	Companies []Company `json:"companies"`
}

// Channel is a channel the user is subscribed to.
type Channel struct {
	ID          FlexString `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CompanyID   FlexString `json:"company,omitempty"`
	Type        string     `json:"type,omitempty"`
	Encrypted   bool       `json:"encrypted"`
	Key         *string    `json:"key,omitempty"`
	UserCount   int        `json:"user_count,omitempty"`
}

type channelsResponse struct {
	Channels []Channel `json:"channels"`
}

// Conversation is a direct or group conversation.
type Conversation struct {
	ID          FlexString `json:"id"`
	Name        string     `json:"name,omitempty"`
	Encrypted   bool       `json:"encrypted"`
	Key         *string    `json:"key,omitempty"`
	Members     []User     `json:"members,omitempty"`
	LastAction  FlexString `json:"last_action,omitempty"`
	UnreadCount int        `json:"unread_messages,omitempty"`
}

type conversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// Sender is the sender field of a message: either a user object or a
// bare string for senders the server cannot resolve.
type Sender struct {
	User *User
	Raw  string
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Sender) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s.User = nil
		return json.Unmarshal(data, &s.Raw)
	}
	if bytes.Equal(data, []byte("null")) {
		*s = Sender{}
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	s.User = &u
	s.Raw = ""
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Sender) MarshalJSON() ([]byte, error) {
	if s.User != nil {
		return json.Marshal(s.User)
	}
	return json.Marshal(s.Raw)
}

// File is an attachment descriptor.
type File struct {
	ID        FlexString `json:"id"`
	Name      string     `json:"name"`
	Encrypted bool       `json:"encrypted"`
	E2EIV     *string    `json:"e2e_iv,omitempty"`
	Mime      string     `json:"mime,omitempty"`
	Ext       string     `json:"ext,omitempty"`
	Size      FlexString `json:"size_byte,omitempty"`
	MD5       string     `json:"md5,omitempty"`
}

// Message is a chat message as delivered by /message/content.
type Message struct {
	ID             FlexString `json:"id"`
	Text           *string    `json:"text"`
	ConversationID FlexString `json:"conversation_id,omitempty"`
	ChannelID      FlexString `json:"channel_id,omitempty"`
	ThreadID       FlexString `json:"thread_id,omitempty"`
	Hash           *string    `json:"hash,omitempty"`
	Verification   *string    `json:"verification,omitempty"`
	Time           FlexString `json:"time,omitempty"`
	Sender         Sender     `json:"sender"`
	Kind           string     `json:"kind,omitempty"`
	Type           string     `json:"type,omitempty"`
	Files          []File     `json:"files,omitempty"`
	Encrypted      *bool      `json:"encrypted,omitempty"`
	IV             *string    `json:"iv,omitempty"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// PrivateKeyData is the key record returned by /security/get_private_key.
// PrivateKey holds the envelope document as a JSON string.
type PrivateKeyData struct {
	UserID             FlexString `json:"user_id"`
	Type               string     `json:"type"`
	Format             string     `json:"format"`
	PrivateKey         string     `json:"private_key"`
	PublicKey          string     `json:"public_key"`
	PublicKeySignature *string    `json:"public_key_signature,omitempty"`
	Time               FlexString `json:"time"`
	Version            int        `json:"version"`
}

type privateKeyResponse struct {
	Keys PrivateKeyData `json:"keys"`
}
