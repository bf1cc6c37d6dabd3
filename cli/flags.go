package cli

import (
	"log"

	"github.com/abiiranathan/goflag"
)

// Handlers are the subcommand entry points supplied by main.
type Handlers struct {
	Read      func()
	Quiz      func()
	RunServer func()
}

// ApplyFile loads the TOML config named by config.ConfigFile, if any, and
// merges it into config. Call after Parse so the flag value is visible.
func ApplyFile(config *Config) {
	if config.ConfigFile == "" {
		return
	}
	fc, err := LoadFile(config.ConfigFile)
	if err != nil {
		log.Fatalln(err)
	}
	fc.Merge(config)
}

func DefineFlags(config *Config, handlers Handlers) *goflag.Context {
	// Flags required by multiple subcommands
	fileFlag := goflag.Flag{
		FlagType:  goflag.FlagFilePath,
		Name:      "file",
		ShortName: "f",
		Value:     &config.Filename,
		Usage:     "The PDF book to open",
		Required:  true,
		Validator: nil,
	}

	voiceFlag := goflag.Flag{
		FlagType:  goflag.FlagString,
		Name:      "voice",
		ShortName: "v",
		Value:     &config.Voice,
		Usage:     "Narration voice identifier",
		Required:  false,
		Validator: nil,
	}

	ttsFlag := goflag.Flag{
		FlagType:  goflag.FlagString,
		Name:      "tts",
		ShortName: "t",
		Value:     &config.TTSBaseURL,
		Usage:     "Base URL of the speech synthesis service (empty disables narration)",
		Required:  false,
		Validator: nil,
	}

	// Create flag context.
	ctx := goflag.NewContext()

	// global flags
	ctx.AddFlag(goflag.FlagString, "config", "C", &config.ConfigFile,
		"Path to a TOML config file", false)
	ctx.AddFlag(goflag.FlagInt, "concurrency", "c",
		&config.MaxConcurrency,
		"No of pages extracted at once by the quiz command",
		false, goflag.Min(1), goflag.Max(100))
	ctx.AddFlag(goflag.FlagString, "progress-db", "d", &config.ProgressDB,
		"Path to the SQLite reading-progress database", false)

	// register subcommands
	ctx.AddSubCommand("read", "Read a PDF book page by page with narration", handlers.Read).
		AddFlagPtr(&fileFlag).
		AddFlagPtr(&voiceFlag).
		AddFlagPtr(&ttsFlag).
		AddFlag(goflag.FlagInt, "near", "n", &config.NearPages,
			"How many pages after the current one load at near priority", false,
			goflag.Min(1), goflag.Max(50))

	ctx.AddSubCommand("quiz", "Generate a comprehension quiz for a PDF book", handlers.Quiz).
		AddFlagPtr(&fileFlag).
		AddFlag(goflag.FlagInt, "questions", "q", &config.QuizSize,
			"Number of questions to generate", false,
			goflag.Min(1), goflag.Max(20))

	// Run server
	ctx.AddSubCommand("runserver", "Start an Http server for reading books", handlers.RunServer).
		AddFlag(goflag.FlagInt, "port", "p", &config.Port, "The port to run the server on", false).
		AddFlagPtr(&voiceFlag).
		AddFlagPtr(&ttsFlag)

	return ctx
}
