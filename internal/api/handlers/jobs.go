package handlers

import (
	"net/http"
	"strconv"

	"github.com/dvloznov/statement-ledger/internal/api/middleware"
	"github.com/dvloznov/statement-ledger/internal/jobs"
)

// JobsHandler serves /api/jobs.
type JobsHandler struct {
	store jobs.Store
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.Store) *JobsHandler {
	return &JobsHandler{store: store}
}

// List handles GET /api/jobs?status=&document_id=&limit=&offset=.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.Filter{
		UserID:     middleware.UserIDFrom(r.Context()),
		DocumentID: q.Get("document_id"),
		Status:     jobs.JobStatus(q.Get("status")),
		Limit:      50,
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name)
			return
		}
		*dst = n
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "list jobs")
		return
	}
	if list == nil {
		list = []*jobs.ProcessDocumentJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"count": len(list),
	})
}

// Get handles GET /api/jobs/{id}. Jobs owned by other users are reported missing.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get job")
		return
	}
	if job.UserID != middleware.UserIDFrom(r.Context()) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}
