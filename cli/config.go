package cli

// Config holds the configuration for the CLI.
type Config struct {
	// Max pages extracted at a time by the quiz subcommand.
	// Large values will increase CPU and memory usage.
	// Default is 10.
	MaxConcurrency int

	// the PDF file to read
	Filename string

	// number of quiz questions to generate. Default is 5.
	QuizSize int

	// narration voice identifier sent to the speech service
	Voice string

	// base URL of the speech synthesis service. Empty disables narration.
	TTSBaseURL string

	// how many pages after the current one load at near priority
	NearPages int

	// scheduler yields between near-tier pages, in milliseconds
	NearYieldMs int

	// scheduler yields between background-tier pages, in milliseconds
	BackgroundYieldMs int

	// narration word-boundary poll interval, in milliseconds
	PollIntervalMs int

	// path to the SQLite reading-progress database. Empty disables recording.
	ProgressDB string

	// optional TOML config file
	ConfigFile string

	// server port. default is 8080
	Port int
}

var DefaultConfig = Config{
	MaxConcurrency:    10,
	QuizSize:          5,
	Voice:             "en-child-1",
	NearPages:         5,
	NearYieldMs:       15,
	BackgroundYieldMs: 50,
	PollIntervalMs:    50,
	Port:              8080,
}
