package api

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/transfer"
)

const maxUploadBytes = 20 << 20

var contentTypes = map[string]string{
	registry.FormatCSV:  "text/csv; charset=utf-8",
	registry.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	registry.FormatPDF:  "application/pdf",
}

// Import handles POST /api/import (multipart/form-data, field "file").
//
//	@Summary	Import clients from a CSV or XLSX file
//	@Tags		transfer
//	@Accept		mpfd
//	@Produce	json
//	@Param		file	formData	file	true	"Columns: nome, telefone, CPF"
//	@Success	200		{object}	ImportResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name := filepath.Base(filepath.Clean(header.Filename))
	if !transfer.Supported(name) {
		writeJSON(w, http.StatusBadRequest, errorBody("only .csv and .xlsx files are accepted"))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	out, err := h.svc.Import(r.Context(), name, data)
	if errors.Is(err, apperr.ErrUnreadableFile) {
		writeJSON(w, http.StatusBadRequest, errorBody("Erro ao importar: "+err.Error()))
		return
	}
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Imports handles GET /api/imports.
func (h *Handler) Imports(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Imports(r.Context(), 50)
	if err != nil {
		writeError(w, "list imports", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportListResponse{Imports: recs})
}

// ExportClients handles GET /api/export/clients.{format}.
func (h *Handler) ExportClients(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "format")
	if kind != registry.FormatCSV && kind != registry.FormatXLSX {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be csv or xlsx"))
		return
	}
	var buf bytes.Buffer
	name, err := h.svc.ExportClients(r.Context(), &buf, kind)
	if err != nil {
		writeError(w, "export clients", err)
		return
	}
	sendFile(w, name, kind, buf.Bytes())
}

// ClientReport handles GET /api/clients/{id}/report.{format}.
//
//	@Summary	Download a client's access report
//	@Tags		transfer
//	@Produce	application/pdf
//	@Param		id		path	string	true	"Client id"
//	@Param		format	path	string	true	"pdf or xlsx"
//	@Success	200
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/clients/{id}/report.{format} [get]
func (h *Handler) ClientReport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "format")
	if kind != registry.FormatPDF && kind != registry.FormatXLSX {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be pdf or xlsx"))
		return
	}
	var buf bytes.Buffer
	name, err := h.svc.ExportReport(r.Context(), &buf, chi.URLParam(r, "id"), kind)
	if err != nil {
		writeError(w, "client report", err)
		return
	}
	sendFile(w, name, kind, buf.Bytes())
}

func sendFile(w http.ResponseWriter, name, kind string, data []byte) {
	w.Header().Set("Content-Type", contentTypes[kind])
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
