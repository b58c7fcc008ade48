// Package e2e provides end-to-end tests for the complete memomeet flow.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/memomeet/memomeet/adapters/auth"
	"github.com/memomeet/memomeet/adapters/payment"
	"github.com/memomeet/memomeet/bootstrap"
	"github.com/memomeet/memomeet/config"
	"github.com/memomeet/memomeet/domain/billing"
)

const (
	webhookSecret = "whsec_e2e"
	accountID     = "acct_e2e"
	pack10        = "price_1R5enGK9mEToSu4Ymfww3tTb"
)

const configTemplate = `
auth:
  jwt_secret: e2e-secret
billing:
  mode: dummy
  webhook_secret: %s
summarizer:
  mode: dummy
export:
  mode: google
  base_url: %s
database:
  driver: sqlite
  dsn: %s
logging:
  level: warn
metrics:
  enabled: true
`

// fakeDocs records the documents created through the Google Docs API.
type fakeDocs struct {
	mu     sync.Mutex
	tokens []string
	texts  []string
}

func (f *fakeDocs) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, r.Header.Get("Authorization"))

	switch {
	case r.URL.Path == "/v1/documents":
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"documentId":"doc_e2e"}`)
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		body, _ := io.ReadAll(r.Body)
		f.texts = append(f.texts, string(body))
		fmt.Fprint(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

type env struct {
	app    *bootstrap.App
	server *httptest.Server
	token  string
}

func startApp(t *testing.T, dbPath, docsURL string) *env {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "memomeet.yaml")
	body := fmt.Sprintf(configTemplate, webhookSecret, docsURL, dbPath)
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	a, err := bootstrap.NewWithConfig(context.Background(), cfg, bootstrap.Options{Version: "e2e", LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	srv := httptest.NewServer(a.HTTPServer.Handler)

	tok, _, err := a.Tokens.GenerateToken(accountID, "e2e@example.com", auth.RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &env{app: a, server: srv, token: tok}
}

func (e *env) close() {
	e.server.Close()
	e.app.Close()
}

type document struct {
	Data   json.RawMessage `json:"data"`
	Meta   map[string]any  `json:"meta"`
	Errors []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	} `json:"errors"`
}

func (e *env) do(t *testing.T, method, path, contentType string, body io.Reader, headers map[string]string) (int, document) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if _, ok := headers["Authorization"]; !ok && !strings.HasPrefix(path, "/webhooks/") {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var doc document
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "json") {
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, doc
}

type resource struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

func (d document) resource(t *testing.T) resource {
	t.Helper()
	var r resource
	if err := json.Unmarshal(d.Data, &r); err != nil {
		t.Fatalf("data is not a single resource: %s", d.Data)
	}
	return r
}

func (e *env) credits(t *testing.T) float64 {
	t.Helper()
	status, doc := e.do(t, http.MethodGet, "/api/me", "", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("GET /api/me = %d", status)
	}
	attrs := doc.resource(t).Attributes
	n, ok := attrs["credits"].(float64)
	if !ok {
		t.Fatalf("credits attribute = %v", attrs["credits"])
	}
	return n
}

func (e *env) webhook(t *testing.T, ev payment.DummyEvent) string {
	t.Helper()
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	status, doc := e.do(t, http.MethodPost, "/webhooks/dummy", "application/json", bytes.NewReader(payload),
		map[string]string{"X-Dummy-Signature": payment.SignDummyPayload(webhookSecret, payload)})
	if status != http.StatusOK {
		t.Fatalf("webhook %s = %d", ev.ID, status)
	}
	outcome, _ := doc.Meta["outcome"].(string)
	return outcome
}

func (e *env) upload(t *testing.T, audio string) (int, document) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "standup.m4a")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(audio))
	mw.Close()
	return e.do(t, http.MethodPost, "/api/summaries", mw.FormDataContentType(), &buf, nil)
}

// TestE2E_PurchaseSummarizeExport walks a user from sign-in to an exported summary:
// 1. First request creates an empty account
// 2. Upload without credits is refused
// 3. Checkout and a signed purchase webhook grant credits exactly once
// 4. Upload consumes one credit and stores the summary
// 5. Export publishes the summary with the delegated token
// 6. Credits and events survive a restart on the same database
func TestE2E_PurchaseSummarizeExport(t *testing.T) {
	docs := &fakeDocs{}
	docsServer := httptest.NewServer(docs)
	defer docsServer.Close()

	dbPath := filepath.Join(t.TempDir(), "memomeet.db")
	e := startApp(t, dbPath, docsServer.URL)

	// 1. Sign-in creates the account
	if got := e.credits(t); got != 0 {
		t.Fatalf("initial credits = %v, want 0", got)
	}

	// 2. No credits, no summary
	status, doc := e.upload(t, "meeting audio")
	if status != http.StatusPaymentRequired {
		t.Fatalf("upload without credits = %d, want 402", status)
	}
	if len(doc.Errors) != 1 || doc.Errors[0].Code != "insufficient_credits" || doc.Errors[0].ID == "" {
		t.Errorf("errors = %+v, want insufficient_credits with a request id", doc.Errors)
	}

	// 3. Buy a pack
	status, doc = e.do(t, http.MethodPost, "/api/billing/checkout", "application/json",
		strings.NewReader(`{"price_id":"`+pack10+`"}`), nil)
	if status != http.StatusOK {
		t.Fatalf("checkout = %d", status)
	}
	if url, _ := doc.Meta["checkout_url"].(string); url == "" {
		t.Fatal("checkout_url missing")
	}

	purchase := payment.DummyEvent{
		ID:        "evt_e2e_purchase",
		Type:      string(billing.EventOneTimePurchase),
		AccountID: accountID,
		PriceID:   pack10,
		Created:   time.Now().Unix(),
	}
	if outcome := e.webhook(t, purchase); outcome != "applied" {
		t.Fatalf("first delivery outcome = %q", outcome)
	}
	if outcome := e.webhook(t, purchase); outcome != "duplicate" {
		t.Fatalf("redelivery outcome = %q", outcome)
	}
	if got := e.credits(t); got != 10 {
		t.Fatalf("credits after purchase = %v, want 10", got)
	}

	// 4. Summarize
	status, doc = e.upload(t, "meeting audio")
	if status != http.StatusCreated {
		t.Fatalf("upload = %d, want 201", status)
	}
	created := doc.resource(t)
	summaryID := created.ID
	if summaryID == "" {
		t.Fatal("summary id missing")
	}
	if tasks, _ := created.Attributes["tasks"].([]any); len(tasks) != 2 {
		t.Errorf("tasks = %v, want 2", created.Attributes["tasks"])
	}
	if got := e.credits(t); got != 9 {
		t.Fatalf("credits after summary = %v, want 9", got)
	}

	// 5. Export
	status, doc = e.do(t, http.MethodPost, "/api/summaries/"+summaryID+"/export", "", nil,
		map[string]string{"X-Google-Access-Token": "ya29.e2e"})
	if status != http.StatusOK {
		t.Fatalf("export = %d", status)
	}
	if url, _ := doc.Meta["document_url"].(string); !strings.Contains(url, "doc_e2e") {
		t.Errorf("document_url = %q", url)
	}
	docs.mu.Lock()
	if len(docs.tokens) != 2 || docs.tokens[0] != "Bearer ya29.e2e" {
		t.Errorf("docs api tokens = %v", docs.tokens)
	}
	if len(docs.texts) != 1 || !strings.Contains(docs.texts[0], "Share the meeting notes") {
		t.Errorf("docs api body = %v", docs.texts)
	}
	docs.mu.Unlock()

	status, doc = e.do(t, http.MethodGet, "/api/me/events", "", nil, nil)
	if status != http.StatusOK || doc.Meta["total"] != float64(1) {
		t.Fatalf("events = %d total %v, want 1 event", status, doc.Meta["total"])
	}

	e.close()

	// 6. Restart on the same database
	e = startApp(t, dbPath, docsServer.URL)
	defer e.close()

	if got := e.credits(t); got != 9 {
		t.Fatalf("credits after restart = %v, want 9", got)
	}
	if outcome := e.webhook(t, purchase); outcome != "duplicate" {
		t.Fatalf("redelivery after restart outcome = %q", outcome)
	}
	if status, _ := e.do(t, http.MethodGet, "/api/summaries/"+summaryID, "", nil, nil); status != http.StatusOK {
		t.Fatalf("summary after restart = %d", status)
	}
}

// TestE2E_OperationalEndpoints checks the endpoints used by load balancers and scrapers.
func TestE2E_OperationalEndpoints(t *testing.T) {
	e := startApp(t, filepath.Join(t.TempDir(), "memomeet.db"), "http://127.0.0.1:1")
	defer e.close()

	client := &http.Client{Timeout: 5 * time.Second}
	for _, path := range []string{"/health/live", "/health/ready", "/version", "/metrics", "/swagger/doc.json"} {
		resp, err := client.Get(e.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	status, _ := e.do(t, http.MethodGet, "/api/me", "", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	if status != http.StatusUnauthorized {
		t.Errorf("invalid token = %d, want 401", status)
	}
}
