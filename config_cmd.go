package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# enable debug logging
debug: false
# write logs to this file instead of stderr
# log_file: "~/.cache/lessonvox/lessonvox.log"

# speech engine: azure, gtts, piper or mock
engine: "azure"
# engine to switch to after repeated failures of the primary (optional)
# fallback: "gtts"
# concurrent synthesis requests per compilation
workers: 1

# voices speaking each script tag
voices:
  native: "en-US-JennyNeural"
  target: "es-ES-AlvaroNeural"
  # target voice used on repetition tracks
  target_repeat: "es-ES-ElviraNeural"

# artifact encoding: mp3 (needs ffmpeg) or wav
output:
  format: "mp3"
  bitrate: "128k"

# Azure Speech (key and region may also come from AZURE_SPEECH_KEY and
# AZURE_SPEECH_REGION)
azure:
  # key: ""
  # region: "westeurope"
  output_format: "riff-24khz-16bit-mono-pcm"
  requests_per_minute: 200
  timeout: "30s"

# Google Translate TTS through gtts-cli
gtts:
  binary: "gtts-cli"
  ffmpeg: "ffmpeg"
  slow: false
  requests_per_minute: 50
  timeout: "30s"

# Piper (voices are model names relative to data_dir)
piper:
  binary: "piper"
  # data_dir: "/usr/share/piper"
  sample_rate: 22050
  timeout: "30s"

# offline engine producing silence
mock:
  words_per_minute: 150

# where lesson requests are read from: file or supabase
store:
  backend: "file"
  path: "requests.json"
  # reprocess when the request file changes (process --watch)
  watch: false

# where rendered tracks are published: local, supabase or drive
storage:
  backend: "local"
  dir: "audio"
  # base_url: "https://cdn.example.com/audio"
  # drive_folder_id: ""
  # drive_credentials: "~/.config/lessonvox/service-account.json"

supabase:
  # url: "https://project.supabase.co"
  # service_role_key: ""
  table: "tts_requests"
  bucket: "audio"

# HTTP API (serve)
server:
  addr: ":8080"
  read_timeout: "30s"
  write_timeout: "5m"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the lessonvox config file",
	Long:    paragraph(fmt.Sprintf("\n%s the lessonvox config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("lessonvox config\nlessonvox config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// Editing must work even when the current file does not validate.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("lessonvox", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if configFile == "" {
			return errors.New("no configuration file path")
		}
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
