package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the CLI configuration. Values come from a YAML file and
// are overridden by STASHCAT_* environment variables.
type Settings struct {
	BaseURL    string        `yaml:"base_url"`
	DeviceID   string        `yaml:"device_id"`
	ClientKey  string        `yaml:"client_key"`
	Email      string        `yaml:"email"`
	Password   string        `yaml:"password"`
	Passphrase string        `yaml:"passphrase"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    *int          `yaml:"retries"`
	RateLimit  float64       `yaml:"rate_limit"`
	PageSize   int           `yaml:"page_size"`
	LogLevel   string        `yaml:"log_level"`
}

// envOverrides maps environment variables to the settings they replace.
var envOverrides = []struct {
	name  string
	apply func(*Settings, string) error
}{
	{"STASHCAT_URL", func(s *Settings, v string) error { s.BaseURL = v; return nil }},
	{"STASHCAT_DEVICE_ID", func(s *Settings, v string) error { s.DeviceID = v; return nil }},
	{"STASHCAT_CLIENT_KEY", func(s *Settings, v string) error { s.ClientKey = v; return nil }},
	{"STASHCAT_EMAIL", func(s *Settings, v string) error { s.Email = v; return nil }},
	{"STASHCAT_PASSWORD", func(s *Settings, v string) error { s.Password = v; return nil }},
	{"STASHCAT_PASSPHRASE", func(s *Settings, v string) error { s.Passphrase = v; return nil }},
	{"STASHCAT_LOG_LEVEL", func(s *Settings, v string) error { s.LogLevel = v; return nil }},
	{"STASHCAT_TIMEOUT", func(s *Settings, v string) error {
		d, err := time.ParseDuration(v)
		s.Timeout = d
		return err
	}},
	{"STASHCAT_RETRIES", func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		s.Retries = &n
		return err
	}},
	{"STASHCAT_PAGE_SIZE", func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		s.PageSize = n
		return err
	}},
}

// LoadSettings reads path, if it exists, and applies environment
// overrides. A missing file is not an error unless required is set.
func LoadSettings(path string, required bool, getenv func(string) string) (*Settings, error) {
	s := &Settings{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for _, o := range envOverrides {
		v := getenv(o.name)
		if v == "" {
			continue
		}
		if err := o.apply(s, v); err != nil {
			return nil, fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return s, nil
}
