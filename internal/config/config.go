package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Voxnote environment variables.
const EnvPrefix = "VOXNOTE_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	Addr                  string `yaml:"addr"`
	DBPath                string `yaml:"db_path"`
	AudioDir              string `yaml:"audio_dir"`
	SampleRate            int    `yaml:"sample_rate"`
	SystemDevice          string `yaml:"system_device"`
	TranscribeEndpoint    string `yaml:"transcribe_endpoint"`
	TranscribeModel       string `yaml:"transcribe_model"`
	TranscribeProvider    string `yaml:"transcribe_provider"`
	Language              string `yaml:"language"`
	LLMBaseURL            string `yaml:"llm_base_url"`
	LLMModel              string `yaml:"llm_model"`
	ChunkSize             int    `yaml:"chunk_size"`
	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets — env vars only, never serialized to YAML.
	TranscribeAPIKey string `yaml:"-"`
	LLMAPIKey        string `yaml:"-"`
}

func defaults() Config {
	return Config{
		Addr:                  "127.0.0.1:8080",
		DBPath:                "data/voxnote.db",
		AudioDir:              "data/audio",
		SampleRate:            16000,
		TranscribeModel:       "whisper-1",
		TranscribeProvider:    "whisper",
		Language:              "english",
		LLMModel:              "gpt-4o-mini",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "AUDIO_DIR"); v != "" {
		cfg.AudioDir = v
	}
	if v := os.Getenv(EnvPrefix + "SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && rate > 0 {
			cfg.SampleRate = rate
		}
	}
	if v := os.Getenv(EnvPrefix + "SYSTEM_DEVICE"); v != "" {
		cfg.SystemDevice = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBE_ENDPOINT"); v != "" {
		cfg.TranscribeEndpoint = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBE_MODEL"); v != "" {
		cfg.TranscribeModel = v
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIBE_PROVIDER"); v != "" {
		cfg.TranscribeProvider = v
	}
	if v := os.Getenv(EnvPrefix + "LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv(EnvPrefix + "LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv(EnvPrefix + "CHUNK_SIZE"); v != "" {
		if size, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && size > 0 {
			cfg.ChunkSize = size
		}
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.TranscribeAPIKey = os.Getenv(EnvPrefix + "TRANSCRIBE_API_KEY")
	cfg.LLMAPIKey = os.Getenv(EnvPrefix + "LLM_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.TranscribeAPIKey == "" {
		warnings = append(warnings, "Transcription API key not configured — set "+EnvPrefix+"TRANSCRIBE_API_KEY or store an api_key in settings.")
	}
	if cfg.LLMAPIKey == "" {
		warnings = append(warnings, "LLM API key not configured — set "+EnvPrefix+"LLM_API_KEY or store an api_key in settings.")
	}
	switch cfg.TranscribeProvider {
	case "whisper", "deepgram":
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown transcribe_provider %q — using whisper.", cfg.TranscribeProvider))
		cfg.TranscribeProvider = "whisper"
	}

	return warnings
}
