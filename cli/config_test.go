package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissingIsNotError(t *testing.T) {
	fc, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file returned error: %v", err)
	}
	if fc.Reader.QuizSize != nil {
		t.Fatal("missing file produced set fields")
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	if _, err := LoadFile(""); err == nil {
		t.Fatal("empty path did not return an error")
	}
}

func TestMergeOverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readalong.toml")
	data := `
[reader]
near-pages = 8
quiz-size = 3

[speech]
voice = "en-child-2"

[storage]
progress-db = "/tmp/progress.db"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	config := DefaultConfig
	fc.Merge(&config)

	if config.NearPages != 8 {
		t.Errorf("NearPages = %d, want 8", config.NearPages)
	}
	if config.QuizSize != 3 {
		t.Errorf("QuizSize = %d, want 3", config.QuizSize)
	}
	if config.Voice != "en-child-2" {
		t.Errorf("Voice = %q, want %q", config.Voice, "en-child-2")
	}
	if config.ProgressDB != "/tmp/progress.db" {
		t.Errorf("ProgressDB = %q", config.ProgressDB)
	}

	// Unnamed settings keep their defaults.
	if config.NearYieldMs != DefaultConfig.NearYieldMs {
		t.Errorf("NearYieldMs = %d, want default %d", config.NearYieldMs, DefaultConfig.NearYieldMs)
	}
	if config.MaxConcurrency != DefaultConfig.MaxConcurrency {
		t.Errorf("MaxConcurrency = %d, want default %d", config.MaxConcurrency, DefaultConfig.MaxConcurrency)
	}
}

func TestMergeDoesNotClobberFlags(t *testing.T) {
	quiz := 12
	fc := FileConfig{Reader: ReaderConfig{QuizSize: &quiz}}

	config := DefaultConfig
	config.QuizSize = 7 // set on the command line
	fc.Merge(&config)

	if config.QuizSize != 7 {
		t.Fatalf("QuizSize = %d, flag value was overridden by the file", config.QuizSize)
	}
}

func TestLoadFileRejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[reader\nnear-pages ="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("malformed TOML did not return an error")
	}
}
