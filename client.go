package stashcat

import (
	"context"
	"crypto/rsa"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stashcat/client-go/internal/api"
	"github.com/stashcat/client-go/internal/crypto"
)

// Client is a stashcat session. It lists chats, fetches messages and
// decrypts them once Unlock has succeeded.
type Client struct {
	apiClient *api.Client
	logger    zerolog.Logger
	metrics   *Metrics
	pageSize  int
	index     *MemoryIndex

	mu        sync.RWMutex
	state     *EncryptionState
	keys      *KeyStore
	decryptor *Decryptor
	companies []Company
	messages  map[ChatID][]Message

	signingMu   sync.Mutex
	signingKeys map[string]*rsa.PublicKey
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(cfg *clientConfig) (*api.Client, error) {
	retry := api.NoRetry()
	if cfg.retries > 0 {
		retry = api.DefaultRetryConfig()
		retry.MaxRetries = cfg.retries
	}
	if len(cfg.retryOn) > 0 {
		codes := make(map[int]struct{}, len(cfg.retryOn))
		for _, code := range cfg.retryOn {
			codes[code] = struct{}{}
		}
		retry.RetryableOn = func(statusCode int) bool {
			_, ok := codes[statusCode]
			return ok
		}
	}

	return api.NewClient(api.Config{
		BaseURL:    cfg.baseURL,
		DeviceID:   cfg.deviceID,
		ClientKey:  cfg.clientKey,
		AppName:    cfg.appName,
		HTTPClient: cfg.httpClient,
		Timeout:    cfg.timeout,
		Retry:      retry,
		RateLimit:  cfg.rateLimit,
		RateBurst:  cfg.rateBurst,
		Logger:     cfg.logger,
	})
}

// New creates a client. No request is made until Login or another call.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	apiClient, err := buildAPIClient(cfg)
	if err != nil {
		return nil, &ValueError{Field: "base url", Message: err.Error()}
	}

	return &Client{
		apiClient:   apiClient,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
		pageSize:    cfg.pageSize,
		index:       NewMemoryIndex(),
		messages:    make(map[ChatID][]Message),
		signingKeys: make(map[string]*rsa.PublicKey),
	}, nil
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.apiClient.BaseURL()
}

// DeviceID returns the device identifier sent with every request.
func (c *Client) DeviceID() string {
	return c.apiClient.DeviceID()
}

// ClientKey returns the session key, empty before Login.
func (c *Client) ClientKey() string {
	return c.apiClient.ClientKey()
}

// SetClientKey resumes a session established elsewhere.
func (c *Client) SetClientKey(key string) {
	c.apiClient.SetClientKey(key)
}

// Login authenticates with email and password and stores the session key.
func (c *Client) Login(ctx context.Context, email, password string) error {
	resp, err := c.apiClient.Login(ctx, email, password)
	if err != nil {
		return wrapError(err)
	}
	c.logger.Info().Str("user", resp.UserInfo.ID.String()).Msg("logged in")
	return nil
}

// Unlock fetches the user's private key envelopes and opens them with
// passphrase. The signing key is optional; if the server has none the
// client unlocks without it and VerifyMessage still works since it only
// needs other users' public keys.
func (c *Client) Unlock(ctx context.Context, passphrase string) error {
	encryption, err := c.fetchEnvelope(ctx, api.KeyRoleEncryption)
	if err != nil {
		return err
	}
	set := EnvelopeSet{Encryption: encryption}

	signing, err := c.fetchEnvelope(ctx, api.KeyRoleSigning)
	var apiErr *APIError
	switch {
	case err == nil:
		set.Signing = &signing
	case errors.As(err, &apiErr):
		c.logger.Warn().Err(err).Msg("no signing key, continuing without")
	default:
		return err
	}

	state, err := Unlock(passphrase, set)
	if err != nil {
		return err
	}
	c.UseEncryptionState(state)
	c.logger.Info().Bool("signing", state.HasSigningKey()).Msg("keys unlocked")
	return nil
}

// fetchEnvelope loads a key record, preferring the JWK format and falling
// back to PEM when the server rejects it or returns no key.
func (c *Client) fetchEnvelope(ctx context.Context, role string) (KeyEnvelope, error) {
	var lastErr error
	for _, format := range []string{api.KeyFormatJWK, api.KeyFormatPEM} {
		data, err := c.apiClient.GetPrivateKey(ctx, format, role)
		if err != nil {
			lastErr = wrapError(err)
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) {
				continue
			}
			return KeyEnvelope{}, lastErr
		}
		if strings.TrimSpace(data.PrivateKey) == "" {
			lastErr = &APIError{Status: "OK", ShortMessage: "no_key", Message: "server returned no " + role + " key", Path: "/security/get_private_key"}
			continue
		}
		return KeyEnvelope{Private: data.PrivateKey, Public: data.PublicKey}, nil
	}
	return KeyEnvelope{}, lastErr
}

// UseEncryptionState installs already-unlocked keys. Cached chat keys
// from a previous state are discarded. A nil state locks the client again.
func (c *Client) UseEncryptionState(state *EncryptionState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := []ComponentOption{WithComponentLogger(c.logger), WithComponentMetrics(c.metrics)}
	keys, err := NewKeyStore(state, opts...)
	if err != nil {
		c.state, c.keys, c.decryptor = nil, nil, nil
		return
	}
	c.state = state
	c.keys = keys
	c.decryptor = NewDecryptor(c.index, keys, opts...)
}

// EncryptionState returns the unlocked keys, or nil before Unlock.
func (c *Client) EncryptionState() *EncryptionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) currentDecryptor() (*Decryptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.decryptor == nil {
		return nil, ErrLocked
	}
	return c.decryptor, nil
}

// Refresh reloads companies, channels and conversations.
func (c *Client) Refresh(ctx context.Context) error {
	companies, err := c.apiClient.GetCompanies(ctx)
	if err != nil {
		return wrapError(err)
	}

	var channels []ChatInfo
	out := make([]Company, 0, len(companies))
	for _, co := range companies {
		out = append(out, Company{ID: co.ID.String(), Name: co.Name})
		list, err := c.apiClient.GetChannels(ctx, co.ID.String())
		if err != nil {
			return wrapError(err)
		}
		for _, ch := range list {
			companyID := ch.CompanyID.String()
			if companyID == "" {
				companyID = co.ID.String()
			}
			channels = append(channels, ChatInfo{
				ID:        ChannelID(ch.ID.String()),
				Name:      ch.Name,
				CompanyID: companyID,
				Encrypted: ch.Encrypted,
				Key:       ch.Key,
			})
		}
	}

	var conversations []ChatInfo
	for offset := 0; ; offset += c.pageSize {
		page, err := c.apiClient.GetConversations(ctx, c.pageSize, offset)
		if err != nil {
			return wrapError(err)
		}
		for _, conv := range page {
			conversations = append(conversations, ChatInfo{
				ID:        ConversationID(conv.ID.String()),
				Name:      conversationName(conv),
				Encrypted: conv.Encrypted,
				Key:       conv.Key,
			})
		}
		if len(page) < c.pageSize {
			break
		}
	}

	c.index.Replace(KindChannel, channels)
	c.index.Replace(KindConversation, conversations)

	c.mu.Lock()
	c.companies = out
	c.mu.Unlock()

	c.logger.Debug().
		Int("companies", len(out)).
		Int("channels", len(channels)).
		Int("conversations", len(conversations)).
		Msg("chats refreshed")
	return nil
}

func conversationName(conv api.Conversation) string {
	if conv.Name != "" {
		return conv.Name
	}
	names := make([]string, 0, len(conv.Members))
	for _, m := range conv.Members {
		if n := strings.TrimSpace(m.FirstName + " " + m.LastName); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

// Companies returns the companies loaded by the last Refresh.
func (c *Client) Companies() []Company {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Company, len(c.companies))
	copy(out, c.companies)
	return out
}

// Chats returns every known chat.
func (c *Client) Chats() []ChatInfo {
	return c.index.All()
}

// Chat returns the metadata of one chat.
func (c *Client) Chat(id ChatID) (ChatInfo, bool) {
	return c.index.Lookup(id)
}

// Channels returns the known channels ordered by ID.
func (c *Client) Channels() []ChatInfo {
	return c.chatsOfKind(KindChannel)
}

// Conversations returns the known conversations ordered by ID.
func (c *Client) Conversations() []ChatInfo {
	return c.chatsOfKind(KindConversation)
}

func (c *Client) chatsOfKind(kind ChatKind) []ChatInfo {
	var out []ChatInfo
	for _, info := range c.index.All() {
		if info.ID.Kind == kind {
			out = append(out, info)
		}
	}
	return out
}

// ChatName returns the display name of chat, or its ID when unknown.
func (c *Client) ChatName(chat ChatID) string {
	if info, ok := c.index.Lookup(chat); ok && info.Name != "" {
		return info.Name
	}
	return chat.String()
}

// Index returns the chat index backing the client.
func (c *Client) Index() *MemoryIndex {
	return c.index
}

// Messages returns all messages of chat. Results are cached until
// InvalidateMessages is called; callers get their own copy of the slice.
func (c *Client) Messages(ctx context.Context, chat ChatID) ([]Message, error) {
	c.mu.RLock()
	cached, ok := c.messages[chat]
	c.mu.RUnlock()
	if ok {
		return slices.Clone(cached), nil
	}

	source, err := messageSource(chat.Kind)
	if err != nil {
		return nil, err
	}

	var msgs []Message
	for offset := 0; ; offset += c.pageSize {
		page, err := c.apiClient.GetMessages(ctx, source, chat.ID, c.pageSize, offset)
		if err != nil {
			return nil, wrapError(err)
		}
		for _, m := range page {
			msgs = append(msgs, messageFromAPI(chat, m))
		}
		if len(page) < c.pageSize {
			break
		}
	}

	c.mu.Lock()
	c.messages[chat] = msgs
	c.mu.Unlock()
	return slices.Clone(msgs), nil
}

func messageSource(kind ChatKind) (api.MessageSource, error) {
	switch kind {
	case KindChannel:
		return api.SourceChannel, nil
	case KindConversation:
		return api.SourceConversation, nil
	default:
		return "", &ValueError{Field: "chat kind", Message: kind.String()}
	}
}

// InvalidateMessages drops the cached messages of chat.
func (c *Client) InvalidateMessages(chat ChatID) {
	c.mu.Lock()
	delete(c.messages, chat)
	c.mu.Unlock()
}

// DecryptMessage returns the plaintext of msg.
func (c *Client) DecryptMessage(msg Message) (*string, error) {
	d, err := c.currentDecryptor()
	if err != nil {
		return nil, err
	}
	return d.DecryptMessageText(msg.Chat, msg)
}

// DecryptedMessages fetches and decrypts every message of chat. A message
// that fails to decrypt carries its error in DecryptedMessage.Err; the
// returned error only reports a locked client or a failed fetch.
func (c *Client) DecryptedMessages(ctx context.Context, chat ChatID) ([]DecryptedMessage, error) {
	d, err := c.currentDecryptor()
	if err != nil {
		return nil, err
	}
	msgs, err := c.Messages(ctx, chat)
	if err != nil {
		return nil, err
	}

	out := make([]DecryptedMessage, 0, len(msgs))
	for _, m := range msgs {
		text, err := d.DecryptMessageText(chat, m)
		out = append(out, DecryptedMessage{Message: m, Plaintext: text, Err: err})
	}
	return out, nil
}

// DownloadFile downloads file and decrypts it with chat's key.
func (c *Client) DownloadFile(ctx context.Context, chat ChatID, file File) ([]byte, error) {
	var d *Decryptor
	if file.Encrypted {
		var err error
		if d, err = c.currentDecryptor(); err != nil {
			return nil, err
		}
	}

	raw, err := c.apiClient.DownloadFile(ctx, file.ID)
	if err != nil {
		return nil, wrapError(err)
	}
	if d == nil {
		return raw, nil
	}
	return d.DecryptFile(chat, file, raw)
}

// SigningKey returns userID's public signing key. Keys are cached for
// the life of the client.
func (c *Client) SigningKey(ctx context.Context, userID string) (*rsa.PublicKey, error) {
	c.signingMu.Lock()
	key, ok := c.signingKeys[userID]
	c.signingMu.Unlock()
	if ok {
		return key, nil
	}

	user, err := c.apiClient.GetUserInfo(ctx, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	if strings.TrimSpace(user.PublicSigningKey) == "" {
		return nil, &ProtocolError{Reason: "user " + userID + " has no signing key"}
	}
	key, err = crypto.ParsePublicKey(user.PublicSigningKey)
	if err != nil {
		return nil, &ProtocolError{Reason: "signing key of user " + userID, Err: err}
	}

	c.signingMu.Lock()
	c.signingKeys[userID] = key
	c.signingMu.Unlock()
	return key, nil
}

// VerifyMessage checks msg's verification tag against its sender's
// signing key. Messages without a tag verify without any request.
func (c *Client) VerifyMessage(ctx context.Context, msg Message) (bool, error) {
	ok, err := c.verifyMessage(ctx, msg)
	c.metrics.verification(ok, err)
	return ok, err
}

func (c *Client) verifyMessage(ctx context.Context, msg Message) (bool, error) {
	if msg.Verification == nil || *msg.Verification == "" {
		return true, nil
	}
	if !msg.Sender.Resolved() {
		return false, &ProtocolError{Reason: "sender of message " + msg.ID + " is not a user"}
	}
	key, err := c.SigningKey(ctx, msg.Sender.UserID)
	if err != nil {
		return false, err
	}
	return Verify(msg, key)
}
