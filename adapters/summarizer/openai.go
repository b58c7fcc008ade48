// Package summarizer provides summarization provider adapters.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
)

const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultTranscribeModel = "whisper-1"
	DefaultChatModel       = "gpt-3.5-turbo"

	defaultTimeout   = 5 * time.Minute
	defaultMaxTokens = 1000
)

const systemPrompt = "You are a meeting assistant. First write a clear and complete summary under the heading 'Summary:', " +
	"then a list of tasks under the heading 'Tasks:' using '-' bullets. Never mix the two blocks. " +
	"Answer in the language of the transcript."

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	// APIKey is required for authentication with OpenAI
	APIKey string

	// BaseURL overrides the API root (OpenAI-compatible gateways, tests).
	BaseURL string

	TranscribeModel string
	ChatModel       string

	// Language hints the transcription language (ISO-639-1). Empty means auto-detect.
	Language    string
	Temperature float64
	MaxTokens   int

	// HTTPClient allows custom HTTP client configuration
	// Default: http.Client with a 5 minute timeout
	HTTPClient *http.Client
}

// OpenAI implements ports.Summarizer with the whisper transcription and chat completion APIs.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI creates a new OpenAI summarizer.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = DefaultTranscribeModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &OpenAI{cfg: cfg, client: client}, nil
}

// Transcribe streams the audio to the transcription endpoint.
func (p *OpenAI) Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeTranscriptionForm(mw, audio, filename, mimeType, p.cfg))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/audio/transcriptions", pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp transcriptionResponse
	if err := p.do(req, &resp); err != nil {
		pr.CloseWithError(err)
		return "", err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func writeTranscriptionForm(mw *multipart.Writer, audio io.Reader, filename, mimeType string, cfg OpenAIConfig) error {
	if err := mw.WriteField("model", cfg.TranscribeModel); err != nil {
		return err
	}
	if cfg.Language != "" {
		if err := mw.WriteField("language", cfg.Language); err != nil {
			return err
		}
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	return mw.Close()
}

// Summarize asks the chat model for the summary and task blocks.
func (p *OpenAI) Summarize(ctx context.Context, transcript string) (summary.Draft, error) {
	if strings.TrimSpace(transcript) == "" {
		return summary.Draft{}, ErrEmptyTranscript
	}

	body, err := json.Marshal(chatRequest{
		Model:       p.cfg.ChatModel,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Here is a meeting transcript:\n\n" + transcript +
				"\n\nReply with only:\n1. A Summary block\n2. A Tasks block with '-' bullets"},
		},
	})
	if err != nil {
		return summary.Draft{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return summary.Draft{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp chatResponse
	if err := p.do(req, &resp); err != nil {
		return summary.Draft{}, err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return summary.Draft{}, ErrEmptyResponse
	}
	return summary.ParseResponse(resp.Choices[0].Message.Content), nil
}

// do sends req and decodes a successful JSON response into out.
func (p *OpenAI) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp errorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			if resp.StatusCode == http.StatusTooManyRequests || strings.Contains(errorResp.Error.Message, "rate limit") {
				return fmt.Errorf("%w: %s", ErrRateLimitExceeded, errorResp.Error.Message)
			}
			if errorResp.Error.Code == "context_length_exceeded" || strings.Contains(errorResp.Error.Message, "context length") {
				return fmt.Errorf("%w: %s", ErrContextLengthExceeded, errorResp.Error.Message)
			}
			return fmt.Errorf("OpenAI API error: %s", errorResp.Error.Message)
		}
		return fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// OpenAI API request/response types

type transcriptionResponse struct {
	Text string `json:"text"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Ensure interface compliance.
var _ ports.Summarizer = (*OpenAI)(nil)
