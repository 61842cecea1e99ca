package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/jobs"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/statement"
)

// MaxUploadBytes caps the multipart body of an upload.
const MaxUploadBytes = 25 << 20

// DocumentsHandler serves /api/documents.
type DocumentsHandler struct {
	svc       Service
	publisher jobs.Publisher
}

// NewDocumentsHandler creates a documents handler. With a nil publisher,
// processing runs inside the request.
func NewDocumentsHandler(svc Service, publisher jobs.Publisher) *DocumentsHandler {
	return &DocumentsHandler{svc: svc, publisher: publisher}
}

type documentResponse struct {
	Document  *domain.Document         `json:"document"`
	Duplicate bool                     `json:"duplicate,omitempty"`
	Job       *jobs.ProcessDocumentJob `json:"job,omitempty"`
}

// Upload handles POST /api/documents. The statement is sent as the "file"
// form field. Processing starts right away unless process=false.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "File is empty")
		return
	}

	process := true
	if v := r.URL.Query().Get("process"); v != "" {
		if process, err = strconv.ParseBool(v); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid process parameter")
			return
		}
	}

	ctx := r.Context()
	userID := middleware.UserIDFrom(ctx)
	res, err := h.svc.Upload(ctx, userID, statement.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		writeServiceError(w, r, err, "upload document")
		return
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("document_id", res.Document.DocumentID).
		Str("filename", header.Filename).
		Bool("duplicate", res.Duplicate).
		Msg("Document uploaded")

	if res.Duplicate {
		middleware.WriteJSON(w, http.StatusOK, documentResponse{Document: res.Document, Duplicate: true})
		return
	}
	if !process {
		middleware.WriteJSON(w, http.StatusCreated, documentResponse{Document: res.Document})
		return
	}
	h.startProcessing(w, r, userID, res.Document.DocumentID, http.StatusCreated)
}

// List handles GET /api/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list documents")
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

// Get handles GET /api/documents/{id}.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Document(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get document")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// Process handles POST /api/documents/{id}/process.
func (h *DocumentsHandler) Process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFrom(ctx)
	id := r.PathValue("id")

	if _, err := h.svc.Document(ctx, userID, id); err != nil {
		writeServiceError(w, r, err, "get document")
		return
	}
	h.startProcessing(w, r, userID, id, http.StatusAccepted)
}

// Delete handles DELETE /api/documents/{id}.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Delete(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "delete document")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// startProcessing enqueues a job, or processes inline without a publisher.
func (h *DocumentsHandler) startProcessing(w http.ResponseWriter, r *http.Request, userID, documentID string, queuedStatus int) {
	ctx := r.Context()

	if h.publisher == nil {
		doc, err := h.svc.Process(ctx, userID, documentID)
		if err != nil {
			writeServiceError(w, r, err, "process document")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, documentResponse{Document: doc})
		return
	}

	job := &jobs.ProcessDocumentJob{UserID: userID, DocumentID: documentID}
	if err := h.publisher.Publish(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("document_id", documentID).Msg("Failed to publish job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to queue processing job")
		return
	}

	doc, err := h.svc.Document(ctx, userID, documentID)
	if err != nil {
		writeServiceError(w, r, err, "get document")
		return
	}
	middleware.WriteJSON(w, queuedStatus, documentResponse{Document: doc, Job: job})
}
