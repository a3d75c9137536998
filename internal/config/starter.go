package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/peorobertsson/vira/internal/vira"
)

// File is the on-disk layout of config.yaml.
type File struct {
	URL           string       `yaml:"url"`
	User          string       `yaml:"user,omitempty"`
	Token         string       `yaml:"token,omitempty"`
	CreateComment string       `yaml:"create-comment,omitempty"`
	Fields        FieldsFile   `yaml:"fields"`
	EpicLink      EpicLinkFile `yaml:"epic-link"`
	HTTP          HTTPFile     `yaml:"http"`
}

type FieldsFile struct {
	NotCopyable        []string `yaml:"not-copyable"`
	FeatureName        string   `yaml:"feature-name"`
	CapabilityLink     string   `yaml:"capability-link"`
	SubtaskNotSettable []string `yaml:"subtask-not-settable"`
	MultiValue         []string `yaml:"multi-value"`
}

type EpicLinkFile struct {
	Strategy string `yaml:"strategy"`
	Field    string `yaml:"field"`
}

type HTTPFile struct {
	Timeout         string  `yaml:"timeout"`
	RateLimit       float64 `yaml:"rate-limit"`
	RateBurst       int     `yaml:"rate-burst"`
	MaxRetryElapsed string  `yaml:"max-retry-elapsed"`
}

// StarterFile returns a config file populated with the current settings.
// The password is never included.
func StarterFile(s Session) File {
	fields := Fields()
	h := HTTP()
	return File{
		URL:           s.URL,
		User:          s.User,
		Token:         s.Token,
		CreateComment: GetString("create-comment"),
		Fields: FieldsFile{
			NotCopyable:        fields.NotCopyable,
			FeatureName:        fields.FeatureName,
			CapabilityLink:     fields.CapabilityLink,
			SubtaskNotSettable: fields.SubtaskNotSettable,
			MultiValue:         fields.MultiValue,
		},
		EpicLink: EpicLinkFile{
			Strategy: firstNonEmpty(GetString("epic-link.strategy"), vira.EpicLinkAgile),
			Field:    GetString("epic-link.field"),
		},
		HTTP: HTTPFile{
			Timeout:         h.Timeout.String(),
			RateLimit:       h.RateLimit,
			RateBurst:       h.RateBurst,
			MaxRetryElapsed: h.MaxRetryElapsed.String(),
		},
	}
}

// WriteFile writes f as YAML to path. An existing file is only replaced
// when overwrite is set.
func WriteFile(path string, f File, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s already exists", path)
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&f); err != nil {
		return fmt.Errorf("failed to encode config.yaml: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// The file may hold a token.
	if err := os.WriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return nil
}
