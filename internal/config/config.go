package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the desktop assistant.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool
	LogLevel         string

	RemindersFile        string
	DatabaseURL          string
	ReminderPollInterval time.Duration

	SpeechInput     string
	STTCommand      string
	ListenTimeout   time.Duration
	PhraseTimeLimit time.Duration

	SpeechOutput string
	TTSCommand   string
	TTSLang      string

	JokeAPIURL     string
	SearchURL      string
	VideoSearchURL string
	BrowserCommand string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":5000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "deskmate"),
		AllowAnyOrigin:   false,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		RemindersFile:    envOrDefault("REMINDERS_FILE", "reminders.json"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SpeechInput:      envOrDefault("SPEECH_INPUT", "auto"),
		STTCommand:       strings.TrimSpace(os.Getenv("STT_COMMAND")),
		SpeechOutput:     envOrDefault("SPEECH_OUTPUT", "auto"),
		TTSCommand:       envOrDefault("TTS_COMMAND", "espeak-ng"),
		TTSLang:          envOrDefault("TTS_LANG", "en"),
		JokeAPIURL:       envOrDefault("JOKE_API_URL", "https://v2.jokeapi.dev/joke/Programming?safe-mode"),
		SearchURL:        envOrDefault("SEARCH_URL", "https://www.google.com/search?q="),
		VideoSearchURL:   envOrDefault("VIDEO_SEARCH_URL", "https://www.youtube.com/results?search_query="),
		BrowserCommand:   strings.TrimSpace(os.Getenv("BROWSER_COMMAND")),

		ShutdownTimeout:      15 * time.Second,
		ReminderPollInterval: 30 * time.Second,
		ListenTimeout:        5 * time.Second,
		PhraseTimeLimit:      5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReminderPollInterval, err = durationFromEnv("REMINDER_POLL_INTERVAL", cfg.ReminderPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.ListenTimeout, err = durationFromEnv("LISTEN_TIMEOUT", cfg.ListenTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PhraseTimeLimit, err = durationFromEnv("PHRASE_TIME_LIMIT", cfg.PhraseTimeLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.ReminderPollInterval < 10*time.Millisecond {
		return Config{}, fmt.Errorf("REMINDER_POLL_INTERVAL must be at least 10ms")
	}
	if cfg.ListenTimeout <= 0 {
		return Config{}, fmt.Errorf("LISTEN_TIMEOUT must be positive")
	}
	if cfg.PhraseTimeLimit <= 0 {
		return Config{}, fmt.Errorf("PHRASE_TIME_LIMIT must be positive")
	}
	if strings.TrimSpace(cfg.RemindersFile) == "" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("REMINDERS_FILE must not be empty without DATABASE_URL")
	}

	return cfg, nil
}

// StorageMode reports which reminder backend the config selects.
func (c Config) StorageMode() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "file"
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
