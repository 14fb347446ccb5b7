// Package config holds lessonvox configuration: defaults, loading from viper
// and the environment, and validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/lessonvox/lessonvox/internal/voice"
	"github.com/mitchellh/go-homedir"
)

// Config contains all lessonvox configuration options.
type Config struct {
	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log_file"`

	// Speech synthesis
	Engine   string      `yaml:"engine"`
	Fallback string      `yaml:"fallback"`
	Voices   voice.Table `yaml:"voices"`
	Workers  int         `yaml:"workers"`

	Output   OutputConfig   `yaml:"output"`
	Azure    AzureConfig    `yaml:"azure"`
	GTTS     GTTSConfig     `yaml:"gtts"`
	Piper    PiperConfig    `yaml:"piper"`
	Mock     MockConfig     `yaml:"mock"`
	Store    StoreConfig    `yaml:"store"`
	Storage  StorageConfig  `yaml:"storage"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Server   ServerConfig   `yaml:"server"`
}

// OutputConfig selects the artifact encoding.
type OutputConfig struct {
	Format  string `yaml:"format"` // mp3 or wav
	Bitrate string `yaml:"bitrate"`
}

// AzureConfig contains Azure Speech REST settings.
type AzureConfig struct {
	Key               string        `yaml:"key"`
	Region            string        `yaml:"region"`
	Endpoint          string        `yaml:"endpoint"`
	OutputFormat      string        `yaml:"output_format"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// GTTSConfig contains gtts-cli settings.
type GTTSConfig struct {
	Binary            string        `yaml:"binary"`
	FFmpeg            string        `yaml:"ffmpeg"`
	Slow              bool          `yaml:"slow"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// PiperConfig contains Piper settings. Voice keys are model paths relative
// to DataDir.
type PiperConfig struct {
	Binary     string        `yaml:"binary"`
	DataDir    string        `yaml:"data_dir"`
	SampleRate int           `yaml:"sample_rate"`
	Timeout    time.Duration `yaml:"timeout"`
}

// MockConfig configures the offline mock engine.
type MockConfig struct {
	WordsPerMinute int `yaml:"words_per_minute"`
}

// StoreConfig selects where lesson requests are read from.
type StoreConfig struct {
	Backend string `yaml:"backend"` // file or supabase
	Path    string `yaml:"path"`
	Watch   bool   `yaml:"watch"`
}

// StorageConfig selects where rendered artifacts are published.
type StorageConfig struct {
	Backend          string `yaml:"backend"` // local, supabase or drive
	Dir              string `yaml:"dir"`
	BaseURL          string `yaml:"base_url"`
	DriveFolderID    string `yaml:"drive_folder_id"`
	DriveCredentials string `yaml:"drive_credentials"`
}

// SupabaseConfig contains Supabase project settings.
type SupabaseConfig struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	Table          string `yaml:"table"`
	Bucket         string `yaml:"bucket"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Engine:  "azure",
		Voices:  voice.DefaultTable(),
		Workers: 1,
		Output: OutputConfig{
			Format:  "mp3",
			Bitrate: "128k",
		},
		Azure: AzureConfig{
			OutputFormat:      "riff-24khz-16bit-mono-pcm",
			RequestsPerMinute: 200,
			Timeout:           30 * time.Second,
		},
		GTTS: GTTSConfig{
			Binary:            "gtts-cli",
			FFmpeg:            "ffmpeg",
			RequestsPerMinute: 50,
			Timeout:           30 * time.Second,
		},
		Piper: PiperConfig{
			Binary:     "piper",
			SampleRate: 22050,
			Timeout:    30 * time.Second,
		},
		Mock: MockConfig{
			WordsPerMinute: 150,
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    "requests.json",
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     "audio",
		},
		Supabase: SupabaseConfig{
			Table:  "tts_requests",
			Bucket: "audio",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
	}
}

var (
	engines         = map[string]bool{"azure": true, "gtts": true, "piper": true, "mock": true}
	outputFormats   = map[string]bool{"mp3": true, "wav": true}
	storeBackends   = map[string]bool{"file": true, "supabase": true}
	storageBackends = map[string]bool{"local": true, "supabase": true, "drive": true}
)

// Validate checks the configuration for obvious errors.
func (c Config) Validate() error {
	var errs []error

	if !engines[c.Engine] {
		errs = append(errs, fmt.Errorf("engine must be one of azure, gtts, piper or mock, got %q", c.Engine))
	}
	if c.Fallback != "" && !engines[c.Fallback] {
		errs = append(errs, fmt.Errorf("fallback engine must be one of azure, gtts, piper or mock, got %q", c.Fallback))
	}
	if err := c.Voices.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("voices: %w", err))
	}
	if c.Workers < 1 || c.Workers > 64 {
		errs = append(errs, fmt.Errorf("workers must be between 1 and 64, got %d", c.Workers))
	}
	if !outputFormats[c.Output.Format] {
		errs = append(errs, fmt.Errorf("output format must be mp3 or wav, got %q", c.Output.Format))
	}
	if !storeBackends[c.Store.Backend] {
		errs = append(errs, fmt.Errorf("store backend must be file or supabase, got %q", c.Store.Backend))
	}
	if !storageBackends[c.Storage.Backend] {
		errs = append(errs, fmt.Errorf("storage backend must be local, supabase or drive, got %q", c.Storage.Backend))
	}

	needsSupabase := c.Store.Backend == "supabase" || c.Storage.Backend == "supabase"
	if needsSupabase && (c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "") {
		errs = append(errs, errors.New("supabase url and service role key are required for the supabase backends"))
	}
	if c.Storage.Backend == "drive" && c.Storage.DriveCredentials == "" {
		errs = append(errs, errors.New("drive storage requires drive_credentials or GOOGLE_APPLICATION_CREDENTIALS"))
	}

	return errors.Join(errs...)
}

// ExpandPaths expands "~" in every path-valued option.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.LogFile, &c.Piper.DataDir, &c.Store.Path, &c.Storage.Dir, &c.Storage.DriveCredentials} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("unable to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}
