package stashcat

import (
	"strings"

	"github.com/stashcat/client-go/internal/api"
)

// Message is a chat message. Optional server fields are pointers; a nil
// field was absent from the server's response. Messages are values and
// decrypting one never modifies it.
type Message struct {
	ID   string
	Chat ChatID
	// Text is hex ciphertext when Encrypted is true.
	Text *string
	// IV is the hex CBC IV, if the sender supplied one.
	IV        *string
	Encrypted *bool
	// Verification is the hex integrity tag.
	Verification *string
	Hash         *string
	Sender       Sender
	Time         string
	Files        []File
}

// IsEncrypted reports whether the message claims to be encrypted.
func (m Message) IsEncrypted() bool {
	return m.Encrypted != nil && *m.Encrypted
}

// Sender is the author of a message. Raw is set instead of UserID when
// the server only sent a display string.
type Sender struct {
	UserID    string
	FirstName string
	LastName  string
	Raw       string
}

// Resolved reports whether the sender maps to a user ID.
func (s Sender) Resolved() bool {
	return s.UserID != ""
}

// Name returns a display name.
func (s Sender) Name() string {
	if !s.Resolved() {
		return s.Raw
	}
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.UserID
	}
	return name
}

// File is an attachment. Encrypted files are stored AES-CBC encrypted
// under the chat key; IV is hex.
type File struct {
	ID        string
	Name      string
	Encrypted bool
	IV        *string
	Mime      string
	Size      string
}

// DecryptedMessage pairs a message with its plaintext. Err is set, and
// Plaintext nil, when this message could not be decrypted.
type DecryptedMessage struct {
	Message
	Plaintext *string
	Err       error
}

func messageFromAPI(chat ChatID, m api.Message) Message {
	msg := Message{
		ID:           m.ID.String(),
		Chat:         chat,
		Text:         m.Text,
		IV:           m.IV,
		Encrypted:    m.Encrypted,
		Verification: m.Verification,
		Hash:         m.Hash,
		Time:         m.Time.String(),
		Sender:       Sender{Raw: m.Sender.Raw},
	}
	if u := m.Sender.User; u != nil {
		msg.Sender = Sender{UserID: u.ID.String(), FirstName: u.FirstName, LastName: u.LastName}
	}
	for _, f := range m.Files {
		msg.Files = append(msg.Files, fileFromAPI(f))
	}
	return msg
}

func fileFromAPI(f api.File) File {
	return File{
		ID:        f.ID.String(),
		Name:      f.Name,
		Encrypted: f.Encrypted,
		IV:        f.E2EIV,
		Mime:      f.Mime,
		Size:      f.Size.String(),
	}
}
