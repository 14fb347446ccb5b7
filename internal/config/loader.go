package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lessonvox/lessonvox/internal/voice"
	"github.com/spf13/viper"
)

// Secrets are credentials read from the environment. Non-empty values
// override whatever the config file says.
type Secrets struct {
	AzureKey         string `env:"AZURE_SPEECH_KEY"`
	AzureRegion      string `env:"AZURE_SPEECH_REGION"`
	SupabaseURL      string `env:"SUPABASE_URL"`
	SupabaseKey      string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	DriveCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// Load builds a Config from defaults, the given viper instance and the
// environment, then expands paths. A .env file in the working directory is
// loaded first; it never overrides variables that are already set.
func Load(v *viper.Viper) (Config, error) {
	cfg := FromViper(v)

	_ = godotenv.Load()
	secrets, err := env.ParseAs[Secrets]()
	if err != nil {
		return cfg, fmt.Errorf("error parsing environment: %w", err)
	}
	cfg.ApplySecrets(secrets)

	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplySecrets overlays non-empty secrets onto the config.
func (c *Config) ApplySecrets(s Secrets) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Azure.Key, s.AzureKey)
	set(&c.Azure.Region, s.AzureRegion)
	set(&c.Supabase.URL, s.SupabaseURL)
	set(&c.Supabase.ServiceRoleKey, s.SupabaseKey)
	set(&c.Storage.DriveCredentials, s.DriveCredentials)
}

// FromViper reads configuration from v, keeping defaults for unset keys.
func FromViper(v *viper.Viper) Config {
	cfg := Default()

	// General
	if v.IsSet("debug") {
		cfg.Debug = v.GetBool("debug")
	}
	if v.IsSet("log_file") {
		cfg.LogFile = v.GetString("log_file")
	}
	if v.IsSet("engine") {
		cfg.Engine = v.GetString("engine")
	}
	if v.IsSet("fallback") {
		cfg.Fallback = v.GetString("fallback")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}

	// Voices
	if v.IsSet("voices.native") {
		cfg.Voices.Native = voiceKey(v, "voices.native")
	}
	if v.IsSet("voices.target") {
		cfg.Voices.Target = voiceKey(v, "voices.target")
	}
	if v.IsSet("voices.target_repeat") {
		cfg.Voices.TargetRepeat = voiceKey(v, "voices.target_repeat")
	}

	// Output
	if v.IsSet("output.format") {
		cfg.Output.Format = v.GetString("output.format")
	}
	if v.IsSet("output.bitrate") {
		cfg.Output.Bitrate = v.GetString("output.bitrate")
	}

	loadEngines(v, &cfg)
	loadBackends(v, &cfg)

	// Server
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.read_timeout") {
		cfg.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	}
	if v.IsSet("server.write_timeout") {
		cfg.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	}

	return cfg
}

func loadEngines(v *viper.Viper, cfg *Config) {
	// Azure
	if v.IsSet("azure.key") {
		cfg.Azure.Key = v.GetString("azure.key")
	}
	if v.IsSet("azure.region") {
		cfg.Azure.Region = v.GetString("azure.region")
	}
	if v.IsSet("azure.endpoint") {
		cfg.Azure.Endpoint = v.GetString("azure.endpoint")
	}
	if v.IsSet("azure.output_format") {
		cfg.Azure.OutputFormat = v.GetString("azure.output_format")
	}
	if v.IsSet("azure.requests_per_minute") {
		cfg.Azure.RequestsPerMinute = v.GetInt("azure.requests_per_minute")
	}
	if v.IsSet("azure.timeout") {
		cfg.Azure.Timeout = v.GetDuration("azure.timeout")
	}

	// gTTS
	if v.IsSet("gtts.binary") {
		cfg.GTTS.Binary = v.GetString("gtts.binary")
	}
	if v.IsSet("gtts.ffmpeg") {
		cfg.GTTS.FFmpeg = v.GetString("gtts.ffmpeg")
	}
	if v.IsSet("gtts.slow") {
		cfg.GTTS.Slow = v.GetBool("gtts.slow")
	}
	if v.IsSet("gtts.requests_per_minute") {
		cfg.GTTS.RequestsPerMinute = v.GetInt("gtts.requests_per_minute")
	}
	if v.IsSet("gtts.timeout") {
		cfg.GTTS.Timeout = v.GetDuration("gtts.timeout")
	}

	// Piper
	if v.IsSet("piper.binary") {
		cfg.Piper.Binary = v.GetString("piper.binary")
	}
	if v.IsSet("piper.data_dir") {
		cfg.Piper.DataDir = v.GetString("piper.data_dir")
	}
	if v.IsSet("piper.sample_rate") {
		cfg.Piper.SampleRate = v.GetInt("piper.sample_rate")
	}
	if v.IsSet("piper.timeout") {
		cfg.Piper.Timeout = v.GetDuration("piper.timeout")
	}

	// Mock
	if v.IsSet("mock.words_per_minute") {
		cfg.Mock.WordsPerMinute = v.GetInt("mock.words_per_minute")
	}
}

func loadBackends(v *viper.Viper, cfg *Config) {
	// Request store
	if v.IsSet("store.backend") {
		cfg.Store.Backend = v.GetString("store.backend")
	}
	if v.IsSet("store.path") {
		cfg.Store.Path = v.GetString("store.path")
	}
	if v.IsSet("store.watch") {
		cfg.Store.Watch = v.GetBool("store.watch")
	}

	// Artifact storage
	if v.IsSet("storage.backend") {
		cfg.Storage.Backend = v.GetString("storage.backend")
	}
	if v.IsSet("storage.dir") {
		cfg.Storage.Dir = v.GetString("storage.dir")
	}
	if v.IsSet("storage.base_url") {
		cfg.Storage.BaseURL = v.GetString("storage.base_url")
	}
	if v.IsSet("storage.drive_folder_id") {
		cfg.Storage.DriveFolderID = v.GetString("storage.drive_folder_id")
	}
	if v.IsSet("storage.drive_credentials") {
		cfg.Storage.DriveCredentials = v.GetString("storage.drive_credentials")
	}

	// Supabase
	if v.IsSet("supabase.url") {
		cfg.Supabase.URL = v.GetString("supabase.url")
	}
	if v.IsSet("supabase.service_role_key") {
		cfg.Supabase.ServiceRoleKey = v.GetString("supabase.service_role_key")
	}
	if v.IsSet("supabase.table") {
		cfg.Supabase.Table = v.GetString("supabase.table")
	}
	if v.IsSet("supabase.bucket") {
		cfg.Supabase.Bucket = v.GetString("supabase.bucket")
	}
}

func voiceKey(v *viper.Viper, key string) voice.Key {
	return voice.Key(v.GetString(key))
}
