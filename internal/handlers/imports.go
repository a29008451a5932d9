package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"aromastock/internal/formula"
	"aromastock/internal/importer"
	applog "aromastock/internal/log"
)

const maxImportBytes = 10 << 20

type importRequest struct {
	Text           string  `json:"text"`
	OutputQuantity float64 `json:"output_quantity"`
}

type importResponse struct {
	Matches  []importer.Match `json:"matches"`
	Lines    []formula.Line   `json:"lines"`
	Warnings []string         `json:"warnings,omitempty"`
}

// RecipeImport parses a pasted recipe sheet or an uploaded PDF into a draft
// ingredient list matched against the caller's material catalog. Nothing is
// persisted; the draft goes back to the client for review.
func RecipeImport(w http.ResponseWriter, r *http.Request) {
	if repository == nil {
		applog.Debug(r.Context(), "import request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "import request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	text, outputQuantity, ok := importText(w, r)
	if !ok {
		return
	}

	parsed, err := importer.ParseText(text)
	if err != nil {
		applog.Debug(r.Context(), "import sheet rejected", "error", err)
		writeJSONError(w, http.StatusUnprocessableEntity, "no ingredient lines recognised")
		return
	}
	if outputQuantity > 0 {
		parsed = importer.ScaleTo(parsed, outputQuantity)
	}

	materials, err := repository.ListMaterials(r.Context(), userID)
	if err != nil {
		applog.Error(r.Context(), "failed to load materials for import", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to import recipe")
		return
	}

	matches, warnings := importer.MatchCatalog(parsed, materials)
	writeJSON(w, http.StatusOK, importResponse{
		Matches:  matches,
		Lines:    importer.DraftLines(matches),
		Warnings: warnings,
	})
}

// importText pulls the sheet text out of the request: a multipart upload
// with a "file" part is treated as a PDF, anything else as a JSON body.
func importText(w http.ResponseWriter, r *http.Request) (string, float64, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			applog.Debug(r.Context(), "invalid import upload", "error", err)
			writeJSONError(w, http.StatusBadRequest, "invalid upload")
			return "", 0, false
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "a file upload is required")
			return "", 0, false
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
		if err != nil {
			applog.Error(r.Context(), "failed to read import upload", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to read upload")
			return "", 0, false
		}

		text, err := importer.ExtractPDF(data)
		if err != nil {
			applog.Debug(r.Context(), "failed to extract pdf text", "error", err)
			writeJSONError(w, http.StatusUnprocessableEntity, "unable to extract text from the uploaded PDF")
			return "", 0, false
		}
		outputQuantity, err := parseQuantityParam(r, "output_quantity", 0)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return "", 0, false
		}
		return text, outputQuantity, true
	}

	var payload importRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid import payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return "", 0, false
	}
	if strings.TrimSpace(payload.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return "", 0, false
	}
	return payload.Text, payload.OutputQuantity, true
}
