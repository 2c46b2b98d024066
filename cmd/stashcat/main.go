package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	stashcat "github.com/stashcat/client-go"
)

const defaultConfigFile = "stashcat.yaml"

var errUsage = errors.New("usage: stashcat [--config FILE] <chats|messages|download> [args]")

// Config holds the process environment of a run.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
}

// DefaultConfig returns a Config bound to the real process.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
	}
}

// ClientInterface is the part of *stashcat.Client the commands use.
type ClientInterface interface {
	Login(ctx context.Context, email, password string) error
	Unlock(ctx context.Context, passphrase string) error
	Refresh(ctx context.Context) error
	Chats() []stashcat.ChatInfo
	ChatName(chat stashcat.ChatID) string
	DecryptedMessages(ctx context.Context, chat stashcat.ChatID) ([]stashcat.DecryptedMessage, error)
	Messages(ctx context.Context, chat stashcat.ChatID) ([]stashcat.Message, error)
	DownloadFile(ctx context.Context, chat stashcat.ChatID, file stashcat.File) ([]byte, error)
	VerifyMessage(ctx context.Context, msg stashcat.Message) (bool, error)
}

// clientFactory builds the client; tests replace it.
var clientFactory = func(s *Settings, logger zerolog.Logger) (ClientInterface, error) {
	opts := []stashcat.Option{
		stashcat.WithBaseURL(s.BaseURL),
		stashcat.WithLogger(logger),
	}
	if s.DeviceID != "" {
		opts = append(opts, stashcat.WithDeviceID(s.DeviceID))
	}
	if s.ClientKey != "" {
		opts = append(opts, stashcat.WithClientKey(s.ClientKey))
	}
	if s.Timeout > 0 {
		opts = append(opts, stashcat.WithTimeout(s.Timeout))
	}
	if s.Retries != nil {
		opts = append(opts, stashcat.WithRetries(*s.Retries))
	}
	if s.RateLimit > 0 {
		opts = append(opts, stashcat.WithRateLimit(s.RateLimit, 1))
	}
	if s.PageSize > 0 {
		opts = append(opts, stashcat.WithPageSize(s.PageSize))
	}
	return stashcat.New(opts...)
}

// ChatOutput is one line of the chats command.
type ChatOutput struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Encrypted bool   `json:"encrypted"`
}

// MessageOutput is one decrypted message.
type MessageOutput struct {
	ID       string       `json:"id"`
	Time     string       `json:"time,omitempty"`
	Sender   string       `json:"sender"`
	Text     *string      `json:"text"`
	Error    string       `json:"error,omitempty"`
	Verified *bool        `json:"verified,omitempty"`
	Files    []FileOutput `json:"files,omitempty"`
}

// FileOutput describes an attachment.
type FileOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Encrypted bool   `json:"encrypted"`
}

func run(args []string, cfg *Config) error {
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}

	app := &cli.App{
		Name:      "stashcat",
		Usage:     "read end-to-end encrypted stashcat chats",
		Reader:    cfg.Stdin,
		Writer:    cfg.Stdout,
		ErrWriter: cfg.Stderr,
		// Errors are returned to main, which prints them once.
		ExitErrHandler: func(*cli.Context, error) {},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errUsage
			}
			return fmt.Errorf("unknown command: %s", c.Args().First())
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config `FILE`", Value: defaultConfigFile},
			&cli.DurationFlag{Name: "deadline", Usage: "overall time limit", Value: 2 * time.Minute},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:   "chats",
				Usage:  "list channels and conversations",
				Action: withSession(cfg, runChats),
			},
			{
				Name:      "messages",
				Usage:     "print the decrypted messages of a chat",
				ArgsUsage: "<channel|conversation> <id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "verify", Usage: "check each message's signature"},
				},
				Action: withSession(cfg, runMessages),
			},
			{
				Name:      "download",
				Usage:     "download and decrypt an attachment",
				ArgsUsage: "<channel|conversation> <id> <file-id> [output]",
				Action:    withSession(cfg, runDownload),
			},
		},
	}

	if len(args) < 2 {
		return errUsage
	}
	return app.Run(args)
}

type sessionAction func(ctx context.Context, c *cli.Context, client ClientInterface, cfg *Config) error

// withSession loads settings, builds and authenticates the client, and
// then runs action.
func withSession(cfg *Config, action sessionAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		configPath := c.String("config")
		settings, err := LoadSettings(configPath, c.IsSet("config"), cfg.Getenv)
		if err != nil {
			return err
		}

		logger := zerolog.Nop()
		if c.Bool("verbose") {
			level, err := zerolog.ParseLevel(settings.LogLevel)
			if err != nil || settings.LogLevel == "" {
				level = zerolog.DebugLevel
			}
			logger = zerolog.New(zerolog.ConsoleWriter{Out: cfg.Stderr}).Level(level).With().Timestamp().Logger()
		}

		client, err := clientFactory(settings, logger)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}

		ctx, cancel := context.WithTimeout(c.Context, c.Duration("deadline"))
		defer cancel()

		if settings.ClientKey == "" {
			if settings.Email == "" {
				return fmt.Errorf("no session: set client_key or email and password")
			}
			if err := client.Login(ctx, settings.Email, settings.Password); err != nil {
				return fmt.Errorf("login: %w", err)
			}
		}
		if err := client.Unlock(ctx, settings.Passphrase); err != nil {
			return fmt.Errorf("unlock: %w", err)
		}
		if err := client.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		return action(ctx, c, client, cfg)
	}
}

func runChats(_ context.Context, _ *cli.Context, client ClientInterface, cfg *Config) error {
	chats := client.Chats()
	out := make([]ChatOutput, 0, len(chats))
	for _, ch := range chats {
		out = append(out, ChatOutput{
			ID:        ch.ID.ID,
			Kind:      ch.ID.Kind.String(),
			Name:      client.ChatName(ch.ID),
			Encrypted: ch.Encrypted,
		})
	}
	return writeJSON(cfg.Stdout, map[string]any{"chats": out})
}

func chatArg(c *cli.Context) (stashcat.ChatID, error) {
	if c.NArg() < 2 {
		return stashcat.ChatID{}, fmt.Errorf("usage: stashcat %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	kind, err := stashcat.ParseChatKind(c.Args().Get(0))
	if err != nil {
		return stashcat.ChatID{}, err
	}
	return stashcat.ChatID{Kind: kind, ID: c.Args().Get(1)}, nil
}

func runMessages(ctx context.Context, c *cli.Context, client ClientInterface, cfg *Config) error {
	chat, err := chatArg(c)
	if err != nil {
		return err
	}

	msgs, err := client.DecryptedMessages(ctx, chat)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	out := make([]MessageOutput, 0, len(msgs))
	for _, m := range msgs {
		mo := MessageOutput{
			ID:     m.ID,
			Time:   m.Time,
			Sender: m.Sender.Name(),
			Text:   m.Plaintext,
		}
		if m.Err != nil {
			mo.Error = m.Err.Error()
		}
		if c.Bool("verify") {
			ok, err := client.VerifyMessage(ctx, m.Message)
			if err != nil {
				return fmt.Errorf("verify message %s: %w", m.ID, err)
			}
			mo.Verified = &ok
		}
		for _, f := range m.Files {
			mo.Files = append(mo.Files, FileOutput{ID: f.ID, Name: f.Name, Encrypted: f.Encrypted})
		}
		out = append(out, mo)
	}
	return writeJSON(cfg.Stdout, map[string]any{
		"chat":     chat.String(),
		"name":     client.ChatName(chat),
		"messages": out,
	})
}

func runDownload(ctx context.Context, c *cli.Context, client ClientInterface, cfg *Config) error {
	chat, err := chatArg(c)
	if err != nil {
		return err
	}
	if c.NArg() < 3 {
		return fmt.Errorf("usage: stashcat download %s", c.Command.ArgsUsage)
	}
	fileID := c.Args().Get(2)

	msgs, err := client.Messages(ctx, chat)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	file, ok := findFile(msgs, fileID)
	if !ok {
		return fmt.Errorf("file %s not found in %s", fileID, chat)
	}

	data, err := client.DownloadFile(ctx, chat, file)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	target := c.Args().Get(3)
	if target == "" || target == "-" {
		_, err = cfg.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(filepath.Clean(target), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return writeJSON(cfg.Stdout, map[string]any{"file": file.Name, "path": target, "bytes": len(data)})
}

func findFile(msgs []stashcat.Message, id string) (stashcat.File, bool) {
	for _, m := range msgs {
		for _, f := range m.Files {
			if f.ID == id {
				return f, true
			}
		}
	}
	return stashcat.File{}, false
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
