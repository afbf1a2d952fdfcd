package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kartoza/rue-api/internal/engine"
	"github.com/kartoza/rue-api/internal/steps"
)

// registerFiles serves step artifacts as raw files. This route lives outside
// Huma because the path grammar is <step>.<extension> rather than separate
// segments, and the response is a file body, not a schema'd payload.
func registerFiles(r chi.Router, e engine.Engine, basePath string) {
	r.Get(basePath+"/projects/{uuid}/files/{filename}", func(w http.ResponseWriter, req *http.Request) {
		projectUUID := chi.URLParam(req, "uuid")
		filename := chi.URLParam(req, "filename")
		stepName, ext, ok := strings.Cut(filename, ".")
		if !ok {
			writeErrorEnvelope(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("expected <step>.<extension>, got %q", filename))
			return
		}
		path, err := e.ArtifactPath(req.Context(), projectUUID, stepName, ext)
		if err != nil {
			apiErr := handleError(err)
			writeErrorEnvelope(w, apiErr.GetStatus(), "", apiErr.Error())
			return
		}
		w.Header().Set("Content-Type", contentTypeFor(ext))
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
		http.ServeFile(w, req, path)
	})
}

func contentTypeFor(ext string) string {
	switch ext {
	case steps.ExtGeoJSON:
		return "application/geo+json"
	case steps.ExtGLTF:
		return "model/gltf+json"
	default:
		return "application/octet-stream"
	}
}

func writeErrorEnvelope(w http.ResponseWriter, status int, code, message string) {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": apiErrorBody{Code: code, Message: message},
	})
}
