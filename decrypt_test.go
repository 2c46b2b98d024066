package stashcat

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stashcat/client-go/internal/crypto"
)

type decryptFixture struct {
	chatKey   []byte
	decryptor *Decryptor
}

func newDecryptFixture(t *testing.T) *decryptFixture {
	t.Helper()
	enc, _ := testKeys(t)
	chatKey := randomBytes(t, 32)

	index := NewMemoryIndex(
		ChatInfo{ID: testChatID, Encrypted: true, Key: strptr(wrapChatKey(t, &enc.PublicKey, chatKey))},
		ChatInfo{ID: ChannelID("plain"), Encrypted: false},
	)
	keys := newTestKeyStore(t, unlockedState(t))
	return &decryptFixture{chatKey: chatKey, decryptor: NewDecryptor(index, keys)}
}

func TestDecryptMessageText_RoundTrip(t *testing.T) {
	f := newDecryptFixture(t)
	iv := randomBytes(t, 16)

	msg := Message{
		ID:        "1",
		Text:      strptr(encryptText(t, f.chatKey, iv, "hello, wörld")),
		IV:        strptr(hex.EncodeToString(iv)),
		Encrypted: boolptr(true),
	}
	before := *msg.Text

	got, err := f.decryptor.DecryptMessageText(testChatID, msg)
	if err != nil {
		t.Fatalf("DecryptMessageText() error = %v", err)
	}
	if got == nil || *got != "hello, wörld" {
		t.Errorf("DecryptMessageText() = %v, want hello, wörld", got)
	}
	if *msg.Text != before {
		t.Error("DecryptMessageText() modified the message")
	}
}

func TestDecryptMessageText_ZeroIV(t *testing.T) {
	f := newDecryptFixture(t)
	ct := encryptText(t, f.chatKey, make([]byte, 16), "no iv")

	for _, iv := range []*string{nil, strptr("")} {
		msg := Message{Text: strptr(ct), IV: iv, Encrypted: boolptr(true)}
		got, err := f.decryptor.DecryptMessageText(testChatID, msg)
		if err != nil {
			t.Fatalf("DecryptMessageText() error = %v", err)
		}
		if *got != "no iv" {
			t.Errorf("DecryptMessageText() = %q, want %q", *got, "no iv")
		}
	}
}

func TestDecryptMessageText_Passthrough(t *testing.T) {
	f := newDecryptFixture(t)

	tests := []struct {
		name string
		chat ChatID
		msg  Message
	}{
		{"not encrypted", testChatID, Message{Text: strptr("plain text")}},
		{"encrypted false", testChatID, Message{Text: strptr("plain text"), Encrypted: boolptr(false)}},
		{"nil text", testChatID, Message{Encrypted: boolptr(true)}},
		{"empty text", testChatID, Message{Text: strptr(""), Encrypted: boolptr(true)}},
		{"unencrypted chat", ChannelID("plain"), Message{Text: strptr("abcd"), Encrypted: boolptr(true)}},
		{"unknown chat, plain message", ChannelID("nope"), Message{Text: strptr("hi")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.decryptor.DecryptMessageText(tt.chat, tt.msg)
			if err != nil {
				t.Fatalf("DecryptMessageText() error = %v", err)
			}
			if got != tt.msg.Text {
				t.Errorf("DecryptMessageText() = %v, want the original text", got)
			}
		})
	}
}

func TestDecryptMessageText_Errors(t *testing.T) {
	f := newDecryptFixture(t)
	iv := randomBytes(t, 16)
	valid := encryptText(t, f.chatKey, iv, "secret")
	wrongKey := encryptText(t, randomBytes(t, 32), iv, "secret")

	invalidUTF8, err := crypto.EncryptCBC(f.chatKey, iv, []byte{0xff, 0xfe, 0xfd})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		chat   ChatID
		msg    Message
		target error
	}{
		{"unknown chat", ConversationID("999"), Message{Text: strptr(valid), Encrypted: boolptr(true)}, ErrValue},
		{"text not hex", testChatID, Message{Text: strptr("zz"), Encrypted: boolptr(true)}, ErrProtocol},
		{"iv not hex", testChatID, Message{Text: strptr(valid), IV: strptr("xyz"), Encrypted: boolptr(true)}, ErrProtocol},
		{"wrong iv size", testChatID, Message{Text: strptr(valid), IV: strptr("abcd"), Encrypted: boolptr(true)}, ErrCrypto},
		{"not block aligned", testChatID, Message{Text: strptr("abcd"), Encrypted: boolptr(true)}, ErrCrypto},
		{"invalid utf-8", testChatID, Message{Text: strptr(hex.EncodeToString(invalidUTF8)), IV: strptr(hex.EncodeToString(iv)), Encrypted: boolptr(true)}, ErrEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.decryptor.DecryptMessageText(tt.chat, tt.msg)
			if !errors.Is(err, tt.target) {
				t.Errorf("DecryptMessageText() error = %v, want %v", err, tt.target)
			}
		})
	}

	// A foreign key almost always breaks the padding; when it does not,
	// the plaintext must at least differ.
	t.Run("wrong key", func(t *testing.T) {
		msg := Message{Text: strptr(wrongKey), IV: strptr(hex.EncodeToString(iv)), Encrypted: boolptr(true)}
		got, err := f.decryptor.DecryptMessageText(testChatID, msg)
		if err == nil && *got == "secret" {
			t.Error("decrypted with the wrong key")
		}
		if err != nil && !errors.Is(err, ErrCrypto) && !errors.Is(err, ErrEncoding) {
			t.Errorf("DecryptMessageText() error = %v, want ErrCrypto", err)
		}
	})
}

func TestDecryptMessageText_MissingChatKey(t *testing.T) {
	index := NewMemoryIndex(ChatInfo{ID: testChatID, Encrypted: true})
	d := NewDecryptor(index, newTestKeyStore(t, unlockedState(t)))

	_, err := d.DecryptMessageText(testChatID, Message{Text: strptr("00"), Encrypted: boolptr(true)})
	if !errors.Is(err, ErrValue) {
		t.Errorf("DecryptMessageText() error = %v, want ErrValue", err)
	}
}

func TestDecryptFile(t *testing.T) {
	f := newDecryptFixture(t)
	iv := randomBytes(t, 16)
	content := bytes.Repeat([]byte("file body "), 100)

	ct, err := crypto.EncryptCBC(f.chatKey, iv, content)
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.decryptor.DecryptFile(testChatID, File{ID: "f", Encrypted: true, IV: strptr(hex.EncodeToString(iv))}, ct)
	if err != nil {
		t.Fatalf("DecryptFile() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("DecryptFile() returned different content")
	}

	raw := []byte("not encrypted")
	got, err = f.decryptor.DecryptFile(ConversationID("unknown"), File{ID: "g"}, raw)
	if err != nil || !bytes.Equal(got, raw) {
		t.Errorf("DecryptFile(unencrypted) = %q, %v", got, err)
	}

	_, err = f.decryptor.DecryptFile(testChatID, File{ID: "h", Encrypted: true, IV: strptr("nothex")}, ct)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("DecryptFile(bad iv) error = %v, want ErrProtocol", err)
	}
}

func TestTamperedTagStillDecrypts(t *testing.T) {
	f := newDecryptFixture(t)
	_, sign := testKeys(t)
	iv := randomBytes(t, 16)

	text := encryptText(t, f.chatKey, iv, "signed")
	ct, err := hex.DecodeString(text)
	if err != nil {
		t.Fatal(err)
	}
	tag := []byte(signRaw(sign, ct))
	if tag[0] == 'f' {
		tag[0] = '0'
	} else {
		tag[0] = 'f'
	}

	msg := Message{Text: strptr(text), IV: strptr(hex.EncodeToString(iv)), Encrypted: boolptr(true), Verification: strptr(string(tag))}

	ok, err := Verify(msg, &sign.PublicKey)
	if err != nil || ok {
		t.Errorf("Verify(tampered) = %v, %v, want false, nil", ok, err)
	}
	got, err := f.decryptor.DecryptMessageText(testChatID, msg)
	if err != nil || *got != "signed" {
		t.Errorf("DecryptMessageText() = %v, %v", got, err)
	}
}
