package docs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/swaggo/swag"
)

func TestReadDoc_IsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}

	var parsed struct {
		Swagger string                     `json:"swagger"`
		Info    struct{ Title string }     `json:"info"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	if parsed.Swagger != "2.0" || parsed.Info.Title != "memomeet API" {
		t.Errorf("header = %q %q", parsed.Swagger, parsed.Info.Title)
	}
	for _, path := range []string{"/api/me", "/api/summaries", "/api/billing/checkout", "/webhooks/{provider}"} {
		if _, ok := parsed.Paths[path]; !ok {
			t.Errorf("missing path %s", path)
		}
	}
}

func TestHandler_ServesDocJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler("/swagger/").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !json.Valid(rec.Body.Bytes()) {
		t.Error("doc.json body is not JSON")
	}
}
