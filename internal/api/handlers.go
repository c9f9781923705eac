package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/valet/internal/history"
	"github.com/starford/valet/internal/registry"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *registry.Service
	expand *history.ExpandState
}

// NewHandler creates a Handler. expand is the process-wide history tree state.
func NewHandler(svc *registry.Service, expand *history.ExpandState) *Handler {
	if expand == nil {
		expand = history.NewExpandState()
	}
	return &Handler{svc: svc, expand: expand}
}

// ListClients handles GET /api/clients.
//
//	@Summary	List clients ordered by name
//	@Tags		clients
//	@Produce	json
//	@Success	200	{object}	ClientListResponse
//	@Security	BearerAuth
//	@Router		/clients [get]
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context())
	if err != nil {
		writeError(w, "list clients", err)
		return
	}
	writeJSON(w, http.StatusOK, ClientListResponse{Clients: clients, Total: len(clients)})
}

// CreateClient handles POST /api/clients.
//
//	@Summary	Create a client
//	@Tags		clients
//	@Accept		json
//	@Produce	json
//	@Param		body	body		ClientRequest	true	"Client to create"
//	@Success	201		{object}	models.Client
//	@Failure	400		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/clients [post]
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.CreateClient(r.Context(), req)
	if err != nil {
		writeError(w, "create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetClient handles GET /api/clients/{id}.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get client", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateClient handles PUT /api/clients/{id}.
//
//	@Summary	Update client name, CPF and phone
//	@Tags		clients
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"Client id"
//	@Param		body	body		ClientRequest	true	"New values"
//	@Success	200		{object}	models.Client
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/clients/{id} [put]
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateClient(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update client", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteClient handles DELETE /api/clients/{id}.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddBicycle handles POST /api/clients/{id}/bicycles.
func (h *Handler) AddBicycle(w http.ResponseWriter, r *http.Request) {
	var req BicycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.AddBicycle(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "add bicycle", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBicycle handles PUT /api/clients/{id}/bicycles/{bikeID}.
func (h *Handler) UpdateBicycle(w http.ResponseWriter, r *http.Request) {
	var req BicycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.UpdateBicycle(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bikeID"), req)
	if err != nil {
		writeError(w, "update bicycle", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// RemoveBicycle handles DELETE /api/clients/{id}/bicycles/{bikeID}.
func (h *Handler) RemoveBicycle(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveBicycle(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bikeID")); err != nil {
		writeError(w, "remove bicycle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClientRecords handles GET /api/clients/{id}/records.
//
//	@Summary	Access history of one client, newest first
//	@Tags		clients
//	@Produce	json
//	@Param		id	path		string	true	"Client id"
//	@Success	200	{object}	transfer.Report
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/clients/{id}/records [get]
func (h *Handler) ClientRecords(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ClientRecords(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "client records", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Search handles GET /api/search.
//
//	@Summary	Search clients by name, CPF or phone
//	@Tags		search
//	@Produce	json
//	@Param		q	query		string	true	"Search query"
//	@Success	200	{object}	ClientListResponse
//	@Failure	400	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	clients, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, ClientListResponse{Clients: clients, Total: len(clients)})
}

// CheckIn handles POST /api/registros.
//
//	@Summary	Register a bicycle entering the parking
//	@Tags		registros
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CheckInRequest	true	"Client and bicycle"
//	@Success	201		{object}	models.LogEntry
//	@Failure	404		{object}	errResponse
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/registros [post]
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClientID == "" || req.BikeID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("clientId and bikeId are required"))
		return
	}
	e, err := h.svc.CheckIn(r.Context(), req.ClientID, req.BikeID)
	if err != nil {
		writeError(w, "check in", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// CheckOut handles POST /api/registros/{id}/checkout. An empty body means a
// normal exit.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckOutRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.CheckOut(r.Context(), chi.URLParam(r, "id"), req.AccessRemoved)
	if err != nil {
		writeError(w, "check out", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DailyRecords handles GET /api/registros?date=YYYY-MM-DD (default today).
func (h *Handler) DailyRecords(w http.ResponseWriter, r *http.Request) {
	day := h.svc.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.svc.Location())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	records, err := h.svc.DailyRecords(r.Context(), day)
	if err != nil {
		writeError(w, "daily records", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Date: day.Format("2006-01-02"), Records: records})
}

// History handles GET /api/history.
//
//	@Summary	Registros grouped by year, month and day
//	@Tags		history
//	@Produce	json
//	@Success	200	{object}	history.View
//	@Security	BearerAuth
//	@Router		/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.History(r.Context(), h.expand.Snapshot())
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HistorySummary handles GET /api/history/summary. With no registros the
// body is null.
func (h *Handler) HistorySummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		writeError(w, "history summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ToggleYear handles POST /api/history/years/{year}/toggle.
func (h *Handler) ToggleYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid year"))
		return
	}
	expanded := h.expand.ToggleYear(year)
	writeJSON(w, http.StatusOK, ToggleResponse{Key: history.YearKey(year), Expanded: expanded})
}

// ToggleMonth handles POST /api/history/months/{year}/{month}/toggle.
func (h *Handler) ToggleMonth(w http.ResponseWriter, r *http.Request) {
	year, yerr := strconv.Atoi(chi.URLParam(r, "year"))
	month, merr := strconv.Atoi(chi.URLParam(r, "month"))
	if yerr != nil || merr != nil || year < 1 || month < 1 || month > 12 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid year or month"))
		return
	}
	expanded := h.expand.ToggleMonth(year, month)
	writeJSON(w, http.StatusOK, ToggleResponse{Key: history.MonthKey(year, month), Expanded: expanded})
}

// ResetStorage handles DELETE /api/storage.
func (h *Handler) ResetStorage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		writeError(w, "reset storage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
