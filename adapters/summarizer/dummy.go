package summarizer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
)

// Dummy produces deterministic output without calling any API. Used in development.
type Dummy struct{}

// Transcribe reads the whole upload and describes it.
func (Dummy) Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (string, error) {
	n, err := io.Copy(io.Discard, audio)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if n == 0 {
		return "", ErrEmptyTranscript
	}
	return fmt.Sprintf("Transcript of %s (%d bytes).", filename, n), nil
}

// Summarize returns the transcript as the summary with two fixed tasks.
func (Dummy) Summarize(ctx context.Context, transcript string) (summary.Draft, error) {
	if strings.TrimSpace(transcript) == "" {
		return summary.Draft{}, ErrEmptyTranscript
	}
	return summary.ParseResponse("Summary:\n" + transcript +
		"\n\nTasks:\n- Share the meeting notes\n- Schedule the follow-up meeting"), nil
}

// Disabled rejects every call.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Summarize(context.Context, string) (summary.Draft, error) {
	return summary.Draft{}, ErrDisabled
}

// Ensure interface compliance.
var (
	_ ports.Summarizer = Dummy{}
	_ ports.Summarizer = Disabled{}
)
