package summarizer

import (
	"context"
	"io"
	"time"

	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
)

// Observer receives the duration and result of each provider call.
type Observer interface {
	ObserveSummarizer(step string, d time.Duration, err error)
}

type instrumented struct {
	next ports.Summarizer
	obs  Observer
}

// Instrument wraps s so that every call is reported to obs.
func Instrument(s ports.Summarizer, obs Observer) ports.Summarizer {
	if obs == nil {
		return s
	}
	return &instrumented{next: s, obs: obs}
}

func (i *instrumented) Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (string, error) {
	start := time.Now()
	text, err := i.next.Transcribe(ctx, audio, filename, mimeType)
	i.obs.ObserveSummarizer("transcribe", time.Since(start), err)
	return text, err
}

func (i *instrumented) Summarize(ctx context.Context, transcript string) (summary.Draft, error) {
	start := time.Now()
	d, err := i.next.Summarize(ctx, transcript)
	i.obs.ObserveSummarizer("summarize", time.Since(start), err)
	return d, err
}
