package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// Key formats and roles accepted by GetPrivateKey.
const (
	KeyFormatPEM = "pem"
	KeyFormatJWK = "jwk"

	KeyRoleEncryption = "encryption"
	KeyRoleSigning    = "signing"
)

// MessageSource selects which kind of chat GetMessages reads from.
type MessageSource string

const (
	SourceChannel      MessageSource = "channel"
	SourceConversation MessageSource = "conversation"
)

// Login authenticates with email and password and stores the returned
// client key on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{
		"email":                {email},
		"password":             {password},
		"device_id":            {c.deviceID},
		"app_name":             {c.appName},
		"encrypted":            {"true"},
		"callable":             {"false"},
		"key_transfer_support": {"false"},
	}

	var result LoginResponse
	if err := c.post(ctx, "/auth/login", form, false, &result); err != nil {
		return nil, err
	}
	if result.ClientKey == "" {
		return nil, &APIError{StatusCode: 200, Status: statusOK, Message: "login response carried no client key", Path: "/auth/login"}
	}
	c.SetClientKey(result.ClientKey)
	return &result, nil
}

// GetMe returns the logged-in user.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var result userResponse
	if err := c.Do(ctx, "/users/me", url.Values{"withkey": {"true"}}, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// GetUserInfo returns another user's record including their public keys.
func (c *Client) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	form := url.Values{"user_id": {userID}, "withkey": {"true"}}
	var result userResponse
	if err := c.Do(ctx, "/users/info", form, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// GetCompanies lists the companies the user belongs to.
func (c *Client) GetCompanies(ctx context.Context) ([]Company, error) {
	var result companiesResponse
	if err := c.Do(ctx, "/company/member", url.Values{"no_cache": {"true"}}, &result); err != nil {
		return nil, err
	}
	return result.Companies, nil
}

// GetChannels lists the subscribed channels of a company.
func (c *Client) GetChannels(ctx context.Context, companyID string) ([]Channel, error) {
	var result channelsResponse
	if err := c.Do(ctx, "/channels/subscripted", url.Values{"company": {companyID}}, &result); err != nil {
		return nil, err
	}
	return result.Channels, nil
}

// GetConversations returns one page of conversations.
func (c *Client) GetConversations(ctx context.Context, limit, offset int) ([]Conversation, error) {
	form := url.Values{
		"limit":   {strconv.Itoa(limit)},
		"offset":  {strconv.Itoa(offset)},
		"archive": {"0"},
		"sorting": {`["last_action_desc"]`},
	}
	var result conversationsResponse
	if err := c.Do(ctx, "/message/conversations", form, &result); err != nil {
		return nil, err
	}
	return result.Conversations, nil
}

// GetMessages returns one page of messages of a channel or conversation.
func (c *Client) GetMessages(ctx context.Context, source MessageSource, chatID string, limit, offset int) ([]Message, error) {
	form := url.Values{
		"source": {string(source)},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	switch source {
	case SourceChannel:
		form.Set("channel_id", chatID)
	default:
		form.Set("conversation_id", chatID)
	}

	var result messagesResponse
	if err := c.Do(ctx, "/message/content", form, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// GetPrivateKey fetches the user's private key envelope for a role in the
// requested format.
func (c *Client) GetPrivateKey(ctx context.Context, format, role string) (*PrivateKeyData, error) {
	form := url.Values{"format": {format}, "type": {role}}
	var result privateKeyResponse
	if err := c.Do(ctx, "/security/get_private_key", form, &result); err != nil {
		return nil, err
	}
	return &result.Keys, nil
}

// DownloadFile returns the raw stored bytes of a file. Encrypted files are
// returned still encrypted.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	form, err := c.withAuth(nil, true)
	if err != nil {
		return nil, err
	}

	path := "/file/download"
	body, header, err := c.send(ctx, path, url.Values{"id": {fileID}}, form)
	if err != nil {
		return nil, err
	}

	// Failures arrive as a JSON envelope with a 200 status.
	if isJSON(header) {
		var env Envelope
		if json.Unmarshal(body, &env) == nil && env.Status.Value != "" && env.Status.Value != statusOK {
			return nil, &APIError{
				StatusCode:   200,
				Status:       env.Status.Value,
				ShortMessage: env.Status.ShortMessage,
				Message:      env.Status.Message,
				Path:         path,
			}
		}
	}
	return body, nil
}
