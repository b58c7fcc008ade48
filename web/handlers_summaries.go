package web

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/memomeet/memomeet/adapters/export"
	"github.com/memomeet/memomeet/app"
	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/pkg/jsonapi"
)

// googleTokenHeader carries the user's delegated Google OAuth token on export.
const googleTokenHeader = "X-Google-Access-Token"

// uploadFields are the multipart field names accepted for the recording.
var uploadFields = map[string]bool{"file": true, "audio": true}

type updateSummaryRequest struct {
	Content *string   `json:"content"`
	Tasks   *[]string `json:"tasks"`
}

type exportRequest struct {
	AccessToken string `json:"access_token"`
}

// CreateSummary summarizes an uploaded recording for one credit.
// The multipart body is streamed to the summarizer and never buffered to disk.
func (h *Handler) CreateSummary(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	mr, err := r.MultipartReader()
	if err != nil {
		jsonapi.WriteBadRequest(w, "Expected a multipart/form-data upload")
		return
	}

	var part io.ReadCloser
	var filename, mimeType string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeUploadError(w, r, err)
			return
		}
		if uploadFields[p.FormName()] {
			part, filename = p, p.FileName()
			mimeType = p.Header.Get("Content-Type")
			break
		}
		p.Close()
	}
	if part == nil {
		jsonapi.WriteError(w, jsonapi.ErrValidation("file", "an audio file is required"))
		return
	}
	defer part.Close()

	if filename == "" {
		filename = "recording"
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filenameExt(filename))
	}

	claims := getClaims(r.Context())
	s, err := h.summaries.Create(r.Context(), claims.AccountID(), app.Upload{
		Audio:    part,
		Filename: filename,
		MimeType: mimeType,
	})
	if err != nil {
		var recon *app.ReconciliationError
		if !errors.As(err, &recon) {
			h.writeError(w, r, err)
			return
		}
		// The debit failed after the work was done: the user keeps the summary
		// and the reconciliation is already logged and counted.
	}

	jsonapi.WriteCreated(w, summaryResource(s), "/api/summaries/"+s.ID)
}

func (h *Handler) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		jsonapi.WriteError(w, jsonapi.ErrPayloadTooLarge(tooLarge.Limit))
		return
	}
	h.logger.Debug().Err(err).Msg("malformed upload")
	jsonapi.WriteBadRequest(w, "Malformed multipart body")
}

// ListSummaries lists the caller's summaries, newest first.
func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	items, err := h.summaries.List(r.Context(), claims.AccountID())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(items))
	for _, s := range items {
		resources = append(resources, summaryResource(s))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, jsonapi.Meta{"total": len(resources)})
}

// GetSummary returns one of the caller's summaries.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	s, err := h.summaries.Get(r.Context(), claims.AccountID(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, summaryResource(s))
}

// UpdateSummary edits the content or the task list of a summary.
func (h *Handler) UpdateSummary(w http.ResponseWriter, r *http.Request) {
	var req updateSummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "Invalid request body")
		return
	}

	patch := summary.Patch{Content: req.Content}
	if req.Tasks != nil {
		patch.Tasks, patch.SetTasks = *req.Tasks, true
	}

	claims := getClaims(r.Context())
	s, err := h.summaries.Update(r.Context(), claims.AccountID(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, summaryResource(s))
}

// DeleteSummary removes one of the caller's summaries.
func (h *Handler) DeleteSummary(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	if err := h.summaries.Delete(r.Context(), claims.AccountID(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

// ExportSummary publishes a summary to Google Docs with the caller's Google token.
func (h *Handler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(googleTokenHeader)
	if token == "" {
		var req exportRequest
		if err := decodeJSON(w, r, &req); err != nil {
			jsonapi.WriteBadRequest(w, "Invalid request body")
			return
		}
		token = req.AccessToken
	}
	if token == "" {
		h.writeError(w, r, export.ErrMissingToken)
		return
	}

	claims := getClaims(r.Context())
	url, err := h.summaries.Export(r.Context(), claims.AccountID(), chi.URLParam(r, "id"), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"document_url": url})
}

func summaryResource(s summary.Summary) jsonapi.Resource {
	tasks := s.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	return jsonapi.NewResource("summaries", s.ID).
		Attr("source", s.Source).
		Attr("content", s.Content).
		Attr("tasks", tasks).
		Attr("created_at", s.CreatedAt.Format(time.RFC3339)).
		Attr("updated_at", s.UpdatedAt.Format(time.RFC3339)).
		Link("/api/summaries/" + s.ID).
		Build()
}

func filenameExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
