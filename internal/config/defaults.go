package config

const (
	defaultDataDir              = "~/.local/share/lexpipe"
	defaultLogDir               = "~/.local/share/lexpipe/logs"
	defaultAliasMapPath         = "~/.config/lexpipe/aliases.toml"
	defaultFetchUserAgent       = "lexpipe/dev"
	defaultFetchTimeout         = 45
	defaultFetchRequestsPerMin  = 30
	defaultExtractionBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultExtractionModel      = "google/gemini-3-flash-preview"
	defaultExtractionTimeout    = 120
	defaultFuzzyThreshold       = 0.82
	defaultPollInterval         = 5
	defaultErrorRetryInterval   = 10
	defaultHeartbeatInterval    = 15
	defaultLeaseTimeout         = 300
	defaultStageDelaySeconds    = 2
	defaultDocumentDelaySeconds = 5
	defaultWorkers              = 1
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Fetch: Fetch{
			UserAgent:         defaultFetchUserAgent,
			TimeoutSeconds:    defaultFetchTimeout,
			RequestsPerMinute: defaultFetchRequestsPerMin,
		},
		Extraction: Extraction{
			BaseURL:        defaultExtractionBaseURL,
			Model:          defaultExtractionModel,
			TimeoutSeconds: defaultExtractionTimeout,
		},
		Canonical: Canonical{
			FuzzyEnabled:   true,
			FuzzyThreshold: defaultFuzzyThreshold,
		},
		Workflow: Workflow{
			PollInterval:         defaultPollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			HeartbeatInterval:    defaultHeartbeatInterval,
			LeaseTimeout:         defaultLeaseTimeout,
			StageDelaySeconds:    defaultStageDelaySeconds,
			DocumentDelaySeconds: defaultDocumentDelaySeconds,
			Workers:              defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
