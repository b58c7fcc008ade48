// Package export provides document export adapters.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
	"golang.org/x/oauth2"
)

const DefaultDocsBaseURL = "https://docs.googleapis.com"

var (
	// ErrMissingToken is returned when no delegated access token was supplied.
	ErrMissingToken = errors.New("document provider access token is required")

	// ErrUnauthorized is returned when the provider refuses the access token.
	ErrUnauthorized = errors.New("document provider rejected the access token")

	// ErrDisabled is returned when no export provider is configured.
	ErrDisabled = errors.New("document export is not configured")
)

// GoogleDocs creates Google Docs documents with the user's delegated OAuth token.
type GoogleDocs struct {
	baseURL string
	base    *http.Client
}

// NewGoogleDocs creates a Google Docs exporter. Empty baseURL uses the public API.
func NewGoogleDocs(baseURL string, httpClient *http.Client) *GoogleDocs {
	if baseURL == "" {
		baseURL = DefaultDocsBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleDocs{baseURL: strings.TrimRight(baseURL, "/"), base: httpClient}
}

// Export creates the document, writes the body at the start and returns its edit URL.
func (g *GoogleDocs) Export(ctx context.Context, accessToken string, doc summary.Document) (string, error) {
	if accessToken == "" {
		return "", ErrMissingToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	var created struct {
		DocumentID string `json:"documentId"`
	}
	if err := g.post(ctx, client, "/v1/documents", map[string]string{"title": doc.Title}, &created); err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	if created.DocumentID == "" {
		return "", errors.New("create document: missing document id")
	}

	update := batchUpdate{Requests: []docRequest{{
		InsertText: &insertText{Location: location{Index: 1}, Text: doc.Text()},
	}}}
	path := "/v1/documents/" + url.PathEscape(created.DocumentID) + ":batchUpdate"
	if err := g.post(ctx, client, path, update, nil); err != nil {
		return "", fmt.Errorf("write document %s: %w", created.DocumentID, err)
	}

	return "https://docs.google.com/document/d/" + created.DocumentID + "/edit", nil
}

func (g *GoogleDocs) post(ctx context.Context, client *http.Client, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("google docs api returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type batchUpdate struct {
	Requests []docRequest `json:"requests"`
}

type docRequest struct {
	InsertText *insertText `json:"insertText,omitempty"`
}

type insertText struct {
	Location location `json:"location"`
	Text     string   `json:"text"`
}

type location struct {
	Index int `json:"index"`
}

// Disabled rejects every export.
type Disabled struct{}

func (Disabled) Export(context.Context, string, summary.Document) (string, error) {
	return "", ErrDisabled
}

// New creates an exporter by mode ("google", "none").
func New(mode, baseURL string) (ports.DocumentExporter, error) {
	switch mode {
	case "google":
		return NewGoogleDocs(baseURL, nil), nil
	case "none", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown export provider: %s", mode)
	}
}

// Ensure interface compliance.
var (
	_ ports.DocumentExporter = (*GoogleDocs)(nil)
	_ ports.DocumentExporter = Disabled{}
)
