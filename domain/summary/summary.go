// Package summary provides meeting summary value types and the model response parser.
package summary

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrNotFound is returned when a summary does not exist or belongs to another account.
var ErrNotFound = errors.New("summary not found")

// ErrEmptyContent is returned when an edit would blank the summary text.
var ErrEmptyContent = errors.New("summary content is required")

// Unavailable replaces an empty model summary.
const Unavailable = "Summary unavailable"

// minTaskLength filters bullet fragments that are not real tasks.
const minTaskLength = 5

// Summary is a stored meeting summary (value type).
type Summary struct {
	ID        string
	AccountID string
	Source    string // uploaded file name
	Content   string
	Tasks     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Draft is what the summarization provider returns before it is stored.
type Draft struct {
	Content string
	Tasks   []string
}

// Patch is a partial edit. Nil fields are left unchanged.
type Patch struct {
	Content *string
	Tasks   []string
	// SetTasks distinguishes "clear the task list" from "leave it alone".
	SetTasks bool
}

// Apply returns s with p applied.
// This is a PURE function.
func (p Patch) Apply(s Summary, now time.Time) (Summary, error) {
	if p.Content != nil {
		c := strings.TrimSpace(*p.Content)
		if c == "" {
			return s, ErrEmptyContent
		}
		s.Content = c
	}
	if p.SetTasks {
		s.Tasks = cleanTasks(p.Tasks)
	}
	s.UpdatedAt = now
	return s, nil
}

var tasksHeading = regexp.MustCompile(`(?i)(?:tâches|taches|tasks)\s*[:\-]?\s*\n?`)
var summaryHeading = regexp.MustCompile(`(?i)^\s*(?:résumé|resume|summary)\s*:?\s*\n?`)
var bulletSplit = regexp.MustCompile(`\n|[-•*]\s+`)

// ParseResponse splits raw model output into the summary block and its task list.
// Task fragments of minTaskLength characters or fewer are dropped.
// This is a PURE function.
func ParseResponse(raw string) Draft {
	body, tasks := raw, ""
	if loc := tasksHeading.FindStringIndex(raw); loc != nil {
		body, tasks = raw[:loc[0]], raw[loc[1]:]
	}

	content := strings.TrimSpace(summaryHeading.ReplaceAllString(body, ""))
	if content == "" {
		content = Unavailable
	}

	return Draft{
		Content: content,
		Tasks:   cleanTasks(bulletSplit.Split(tasks, -1)),
	}
}

func cleanTasks(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if utf8.RuneCountInString(t) > minTaskLength {
			out = append(out, t)
		}
	}
	return out
}

// Document is the export payload rendered for a document provider.
type Document struct {
	Title   string
	Content string
	Tasks   []string
}

// NewDocument builds the export document of s.
// This is a PURE function.
func NewDocument(s Summary, now time.Time) Document {
	return Document{
		Title:   fmt.Sprintf("MemoMeet summary - %s", now.Format("2006-01-02")),
		Content: s.Content,
		Tasks:   s.Tasks,
	}
}

// Text renders the document body as plain text.
func (d Document) Text() string {
	var b strings.Builder
	b.WriteString("📝 Summary\n\n")
	b.WriteString(d.Content)
	b.WriteString("\n\n📋 Tasks:\n")
	for i, t := range d.Tasks {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(t)
	}
	return b.String()
}
