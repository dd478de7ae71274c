package hiring

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/transport"
	"github.com/frahmantamala/workshop-management/internal/user"
	"github.com/frahmantamala/workshop-management/pkg/logger"
)

type ServiceAPI interface {
	RequestGeneralHire(candidateID int64) (*QueueEntry, error)
	ScanAndHire(scannerID int64, dto ScanDTO) (*QueueEntry, error)
	Approve(actorID, entryID int64, dto ResolveDTO) (*QueueEntry, error)
	Reject(actorID, entryID int64, dto ResolveDTO) (*QueueEntry, error)
	EmployerQueue(employerID int64) ([]*QueueEntry, error)
	CandidateApplications(candidateID int64) ([]*QueueEntry, error)
	QueueStats(employerID int64) (*QueueStatsDTO, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// RequestHire puts the calling user on the general hiring queue.
func (h *Handler) RequestHire(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entry, err := h.Service.RequestGeneralHire(u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto ScanDTO
	if err := transport.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("Scan: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.Service.ScanAndHire(u.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Service.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Service.Reject)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, resolve func(actorID, entryID int64, dto ResolveDTO) (*QueueEntry, error)) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil || entryID <= 0 {
		h.HandleServiceError(w, internal.NewValidationFieldError("entryID", "entryID must be a positive number", internal.ErrCodeInvalidID))
		return
	}

	var dto ResolveDTO
	if r.ContentLength > 0 {
		if err := transport.DecodeJSON(r, &dto); err != nil {
			h.Logger.Error("resolve: invalid request body", "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	entry, err := resolve(u.ID, entryID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entry)
}

// Queue is the employer view: general applications plus entries directed at
// the caller.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.Service.EmployerQueue(u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}

// Applications is the candidate view of their own entries.
func (h *Handler) Applications(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.Service.CandidateApplications(u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.Service.QueueStats(u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}
