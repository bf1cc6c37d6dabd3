package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. Pointer fields
// distinguish "not set" from a zero value so the file only overrides
// what it names.
type FileConfig struct {
	Reader  ReaderConfig  `toml:"reader"`
	Speech  SpeechConfig  `toml:"speech"`
	Storage StorageConfig `toml:"storage"`
}

// ReaderConfig maps page-loading and quiz settings.
type ReaderConfig struct {
	NearPages         *int `toml:"near-pages"`
	NearYieldMs       *int `toml:"near-yield-ms"`
	BackgroundYieldMs *int `toml:"background-yield-ms"`
	QuizSize          *int `toml:"quiz-size"`
	MaxConcurrency    *int `toml:"max-concurrency"`
}

// SpeechConfig maps narration settings.
type SpeechConfig struct {
	BaseURL        *string `toml:"base-url"`
	Voice          *string `toml:"voice"`
	PollIntervalMs *int    `toml:"poll-interval-ms"`
}

// StorageConfig maps progress-store settings.
type StorageConfig struct {
	ProgressDB *string `toml:"progress-db"`
}

// LoadFile reads a TOML config from the given path. Missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Merge applies the file's set fields onto config, skipping any field a
// flag already moved off its default. The effective precedence is
// defaults < file < flags.
func (fc FileConfig) Merge(config *Config) {
	if fc.Reader.NearPages != nil && config.NearPages == DefaultConfig.NearPages {
		config.NearPages = *fc.Reader.NearPages
	}
	if fc.Reader.NearYieldMs != nil && config.NearYieldMs == DefaultConfig.NearYieldMs {
		config.NearYieldMs = *fc.Reader.NearYieldMs
	}
	if fc.Reader.BackgroundYieldMs != nil && config.BackgroundYieldMs == DefaultConfig.BackgroundYieldMs {
		config.BackgroundYieldMs = *fc.Reader.BackgroundYieldMs
	}
	if fc.Reader.QuizSize != nil && config.QuizSize == DefaultConfig.QuizSize {
		config.QuizSize = *fc.Reader.QuizSize
	}
	if fc.Reader.MaxConcurrency != nil && config.MaxConcurrency == DefaultConfig.MaxConcurrency {
		config.MaxConcurrency = *fc.Reader.MaxConcurrency
	}
	if fc.Speech.BaseURL != nil && config.TTSBaseURL == DefaultConfig.TTSBaseURL {
		config.TTSBaseURL = *fc.Speech.BaseURL
	}
	if fc.Speech.Voice != nil && config.Voice == DefaultConfig.Voice {
		config.Voice = *fc.Speech.Voice
	}
	if fc.Speech.PollIntervalMs != nil && config.PollIntervalMs == DefaultConfig.PollIntervalMs {
		config.PollIntervalMs = *fc.Speech.PollIntervalMs
	}
	if fc.Storage.ProgressDB != nil && config.ProgressDB == DefaultConfig.ProgressDB {
		config.ProgressDB = *fc.Storage.ProgressDB
	}
}
