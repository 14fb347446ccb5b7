package engines

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lessonvox/lessonvox/internal/config"
	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/voice"
	"golang.org/x/time/rate"
)

const azureMaxTextSize = 5000

// AzureEngine renders speech through the Azure Speech REST API.
type AzureEngine struct {
	key          string
	endpoint     string
	outputFormat string

	client      *http.Client
	rateLimiter *rate.Limiter
}

var _ speech.Engine = (*AzureEngine)(nil)

// NewAzureEngine creates an Azure engine. A key and either a region or an
// explicit endpoint are required.
func NewAzureEngine(cfg config.AzureConfig) (*AzureEngine, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("azure: missing subscription key: %w", speech.ErrNotConfigured)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, fmt.Errorf("azure: missing region: %w", speech.ErrNotConfigured)
		}
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "riff-24khz-16bit-mono-pcm"
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 200
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &AzureEngine{
		key:          cfg.Key,
		endpoint:     endpoint,
		outputFormat: cfg.OutputFormat,
		client:       &http.Client{Timeout: cfg.Timeout},
		rateLimiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Render implements speech.Renderer.
func (e *AzureEngine) Render(ctx context.Context, text string, v voice.Key) ([]byte, error) {
	if err := checkText(text, azureMaxTextSize); err != nil {
		return nil, err
	}
	if v == "" {
		return nil, speech.NewError(speech.ErrorCodeInvalidInput, "empty voice", nil)
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, speech.NewError(speech.ErrorCodeCanceled, "rate limit wait canceled", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(ssml(text, v)))
	if err != nil {
		return nil, speech.NewError(speech.ErrorCodeSynthesisFailed, "building request", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", e.outputFormat)
	req.Header.Set("User-Agent", "lessonvox")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx.Err(), "azure request")
		}
		return nil, speech.NewError(speech.ErrorCodeSynthesisFailed, "azure request", err).
			WithContext("voice", string(v))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOutputSize))
	if err != nil {
		return nil, speech.NewError(speech.ErrorCodeSynthesisFailed, "reading azure response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, speech.NewError(statusCode(resp.StatusCode),
			fmt.Sprintf("azure returned %s", resp.Status), nil).
			WithContext("voice", string(v)).
			WithContext("body", truncate(string(body), 200))
	}
	if !bytes.HasPrefix(body, []byte("RIFF")) {
		return nil, speech.NewError(speech.ErrorCodeSynthesisFailed,
			"azure response is not RIFF audio; check output_format", nil)
	}
	return body, nil
}

// Info implements speech.Engine.
func (e *AzureEngine) Info() speech.EngineInfo {
	return speech.EngineInfo{
		Name:        "azure",
		SampleRate:  24000,
		MaxTextSize: azureMaxTextSize,
		IsOnline:    true,
	}
}

// Validate implements speech.Engine.
func (e *AzureEngine) Validate(context.Context) error {
	if !strings.HasPrefix(e.outputFormat, "riff-") {
		return fmt.Errorf("azure: output format %q is not a RIFF format", e.outputFormat)
	}
	return nil
}

// Close implements speech.Engine.
func (e *AzureEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// ssml wraps text in a single-voice SSML document. The document language
// is taken from the voice name, e.g. "es-ES" for "es-ES-AlvaroNeural".
func ssml(text string, v voice.Key) string {
	var b strings.Builder
	b.WriteString("<speak version='1.0' xml:lang='")
	xml.EscapeText(&b, []byte(voiceLocale(v))) //nolint:errcheck
	b.WriteString("'><voice name='")
	xml.EscapeText(&b, []byte(v)) //nolint:errcheck
	b.WriteString("'>")
	xml.EscapeText(&b, []byte(text)) //nolint:errcheck
	b.WriteString("</voice></speak>")
	return b.String()
}

func voiceLocale(v voice.Key) string {
	parts := strings.SplitN(string(v), "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func statusCode(status int) speech.ErrorCode {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return speech.ErrorCodeUnauthorized
	case http.StatusTooManyRequests:
		return speech.ErrorCodeRateLimited
	case http.StatusBadRequest:
		return speech.ErrorCodeInvalidInput
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return speech.ErrorCodeTimeout
	default:
		return speech.ErrorCodeSynthesisFailed
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
