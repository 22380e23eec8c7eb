// Package playht implements voice.Provider on top of the PlayHT v2 REST API.
package playht

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mudler/xlog"
	"golang.org/x/time/rate"

	"github.com/qaidjoharj53/Voice-Clone-TTS/pkg/voice"
)

const (
	DefaultBaseURL = "https://api.play.ht/api/v2"
	DefaultEngine  = "Play3.0-mini"

	OutputModeURL   = "url"
	OutputModeLocal = "local"
)

// APIError is returned for any non-2xx answer from PlayHT.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("playht %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ErrGenerationFailed is returned when a TTS job ends in the failed state.
var ErrGenerationFailed = errors.New("playht: speech generation job failed")

type Client struct {
	baseURL       string
	apiKey        string
	userID        string
	defaultEngine string
	outputFormat  string
	outputMode    string
	pollInterval  time.Duration
	httpClient    *http.Client
	limiter       *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

func WithDefaultEngine(engine string) Option {
	return func(c *Client) {
		if engine != "" {
			c.defaultEngine = engine
		}
	}
}

func WithOutputMode(mode string) Option {
	return func(c *Client) {
		if mode != "" {
			c.outputMode = mode
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithRateLimit paces outgoing calls to rps requests per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient builds an immutable client. Credentials are fixed for its lifetime.
func NewClient(apiKey, userID string, opts ...Option) (*Client, error) {
	if apiKey == "" || userID == "" {
		return nil, errors.New("playht: api key and user id are required")
	}
	c := &Client{
		baseURL:       DefaultBaseURL,
		apiKey:        apiKey,
		userID:        userID,
		defaultEngine: DefaultEngine,
		outputFormat:  "mp3",
		outputMode:    OutputModeURL,
		pollInterval:  time.Second,
		httpClient:    &http.Client{Timeout: 90 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	if c.outputMode != OutputModeURL && c.outputMode != OutputModeLocal {
		return nil, fmt.Errorf("playht: unknown output mode %q", c.outputMode)
	}
	return c, nil
}

func (c *Client) OutputMode() string {
	return c.outputMode
}

type clonedVoiceDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	VoiceEngine string `json:"voice_engine"`
}

func (d clonedVoiceDTO) toVoice() voice.ClonedVoice {
	return voice.ClonedVoice{ID: d.ID, Name: d.Name, Engine: d.VoiceEngine}
}

type ttsRequest struct {
	Text         string `json:"text"`
	Voice        string `json:"voice"`
	VoiceEngine  string `json:"voice_engine"`
	OutputFormat string `json:"output_format"`
}

type ttsJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output *struct {
		URL string `json:"url"`
	} `json:"output"`
}

func (c *Client) ListClonedVoices(ctx context.Context) ([]voice.ClonedVoice, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/cloned-voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var dtos []clonedVoiceDTO
	if err := c.doJSON(req, "list cloned voices", &dtos); err != nil {
		return nil, err
	}

	voices := make([]voice.ClonedVoice, 0, len(dtos))
	for _, d := range dtos {
		voices = append(voices, d.toVoice())
	}
	return voices, nil
}

func (c *Client) DeleteClonedVoice(ctx context.Context, id string) error {
	body, err := json.Marshal(map[string]string{"voice_id": id})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/cloned-voices", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, "delete cloned voice", nil)
}

func (c *Client) CreateClone(ctx context.Context, name string, sample []byte, hint string) (*voice.ClonedVoice, error) {
	b := &bytes.Buffer{}
	w := multipart.NewWriter(b)
	if err := w.WriteField("voice_name", name); err != nil {
		return nil, err
	}
	if hint != "" {
		if err := w.WriteField("gender", hint); err != nil {
			return nil, err
		}
	}
	fw, err := w.CreateFormFile("sample_file", name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(sample); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/cloned-voices/instant", b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var dto clonedVoiceDTO
	if err := c.doJSON(req, "create clone", &dto); err != nil {
		return nil, err
	}
	if dto.ID == "" {
		return nil, errors.New("playht: clone response carried no voice id")
	}
	v := dto.toVoice()
	return &v, nil
}

func (c *Client) GenerateSpeech(ctx context.Context, text, voiceID, engine string) (*voice.Speech, error) {
	if engine == "" {
		engine = c.defaultEngine
	}
	payload, err := json.Marshal(ttsRequest{
		Text:         text,
		Voice:        voiceID,
		VoiceEngine:  engine,
		OutputFormat: c.outputFormat,
	})
	if err != nil {
		return nil, err
	}

	if c.outputMode == OutputModeLocal {
		return c.streamSpeech(ctx, payload)
	}
	return c.jobSpeech(ctx, payload)
}

func (c *Client) streamSpeech(ctx context.Context, payload []byte) (*voice.Speech, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/tts/stream", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("playht stream speech: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "stream speech"); err != nil {
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("playht stream speech: reading body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &voice.Speech{Audio: audio, ContentType: contentType}, nil
}

func (c *Client) jobSpeech(ctx context.Context, payload []byte) (*voice.Speech, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var job ttsJob
	if err := c.doJSON(req, "create tts job", &job); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		if job.Output != nil && job.Output.URL != "" {
			return &voice.Speech{AudioURL: job.Output.URL}, nil
		}
		if strings.EqualFold(job.Status, "failed") || strings.EqualFold(job.Status, "error") {
			return nil, fmt.Errorf("%w: job %s", ErrGenerationFailed, job.ID)
		}
		if job.ID == "" {
			return nil, errors.New("playht: tts job response carried no id")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		xlog.Debug("polling tts job", "job", job.ID, "status", job.Status)
		poll, err := c.newRequest(ctx, http.MethodGet, "/tts/"+job.ID, nil)
		if err != nil {
			return nil, err
		}
		poll.Header.Set("Accept", "application/json")
		if err := c.doJSON(poll, "get tts job", &job); err != nil {
			return nil, err
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("AUTHORIZATION", c.apiKey)
	req.Header.Set("X-USER-ID", c.userID)
	return req, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("playht %s: %w", op, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, op); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("playht %s: decoding response: %w", op, err)
	}
	return nil
}

func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

var _ voice.Provider = (*Client)(nil)
