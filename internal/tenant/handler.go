package tenant

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

type DirectoryAPI interface {
	CreateService(ownerID int64, dto CreateServiceDTO) (*Service, error)
	GetServiceFor(actorID, serviceID int64) (*Service, error)
	ListByOwner(ownerID int64) ([]*Service, error)
	UpdateService(actorID, serviceID int64, dto UpdateServiceDTO) (*Service, error)
	DeleteService(actorID, serviceID int64) error
	AddMembership(serviceID, userID int64, role TenantRole, invitedBy *int64, permissions []string) (*Membership, error)
	RemoveMembership(actorID, membershipID int64) error
	UpdateMembership(actorID, membershipID int64, dto UpdateMembershipDTO) (*Membership, error)
	ListMemberships(serviceID int64) ([]*Membership, error)
}

type Handler struct {
	*transport.BaseHandler
	Directory DirectoryAPI
}

func NewHandler(directory DirectoryAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Directory:   directory,
	}
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateServiceDTO
	if err := transport.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateService: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc, err := h.Directory.CreateService(u.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, svc)
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	services, err := h.Directory.ListByOwner(u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, services)
}

// GetService returns the record to users with a stake in the service. For
// everyone else the id behaves as if it did not exist.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serviceID, err := pathID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	svc, err := h.Directory.GetServiceFor(u.ID, serviceID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serviceID, err := pathID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateServiceDTO
	if err := transport.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("UpdateService: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svc, err := h.Directory.UpdateService(u.ID, serviceID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serviceID, err := pathID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Directory.DeleteService(u.ID, serviceID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	serviceID, err := pathID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	memberships, err := h.Directory.ListMemberships(serviceID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, memberships)
}

// AddEmployee hires a user directly, without going through the queue.
func (h *Handler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serviceID, err := pathID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto AddMembershipDTO
	if err := transport.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("AddEmployee: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	m, err := h.Directory.AddMembership(serviceID, dto.UserID, TenantRole(dto.Role), &u.ID, dto.Permissions)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	membershipID, err := pathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateMembershipDTO
	if err := transport.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("UpdateEmployee: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.Directory.UpdateMembership(u.ID, membershipID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	membershipID, err := pathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Directory.RemoveMembership(u.ID, membershipID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError(name, name+" must be a positive number", internal.ErrCodeInvalidID)
	}
	return id, nil
}
