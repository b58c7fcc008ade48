package jsonapi

import (
	"encoding/json"
	"net/http"
)

// Write encodes doc with the JSON:API content type.
func Write(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

// WriteResource writes a single resource.
func WriteResource(w http.ResponseWriter, status int, r Resource) {
	Write(w, status, Document{Data: r})
}

// WriteCollection writes resources with optional meta. Nil renders as [].
func WriteCollection(w http.ResponseWriter, status int, resources []Resource, meta Meta) {
	if resources == nil {
		resources = []Resource{}
	}
	Write(w, status, Document{Data: resources, Meta: meta})
}

// WriteCreated writes 201 with the new resource and its Location.
func WriteCreated(w http.ResponseWriter, r Resource, location string) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	WriteResource(w, http.StatusCreated, r)
}

// WriteNoContent writes 204.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteMeta writes a document with meta only.
func WriteMeta(w http.ResponseWriter, status int, meta Meta) {
	Write(w, status, Document{Meta: meta})
}

// WriteError writes errs with the status of the first one.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}
	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	Write(w, status, Document{Errors: errs})
}

// WriteBadRequest writes a 400 error.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, ErrBadRequest(detail))
}

// WriteUnauthorized writes a 401 error.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	WriteError(w, ErrUnauthorized(detail))
}
