package order

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
	CreateOrder(serviceID, createdBy int64, dto CreateOrderDTO) (*Order, error)
	GetOrder(serviceID, orderID int64) (*Order, error)
	ListOrders(serviceID int64, limit, offset int) ([]*Order, error)
	UpdateOrder(serviceID, orderID int64, dto UpdateOrderDTO) (*Order, error)
	DeleteOrder(serviceID, orderID int64) error
	NextOrderNumber(serviceID int64) (string, error)
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

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok || u == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	serviceID, err := paramID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto CreateOrderDTO
	if err := transport.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("CreateOrder: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Service.CreateOrder(serviceID, u.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	serviceID, err := paramID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.Service.ListOrders(serviceID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	serviceID, err := paramID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	orderID, err := paramID(r, "orderID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	o, err := h.Service.GetOrder(serviceID, orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	serviceID, err := paramID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	orderID, err := paramID(r, "orderID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateOrderDTO
	if err := transport.DecodeJSON(r, &dto); err != nil {
		h.Logger.Error("UpdateOrder: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Service.UpdateOrder(serviceID, orderID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	serviceID, err := paramID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	orderID, err := paramID(r, "orderID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteOrder(serviceID, orderID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) NextOrderNumber(w http.ResponseWriter, r *http.Request) {
	serviceID, err := paramID(r, "serviceID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	number, err := h.Service.NextOrderNumber(serviceID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"order_number": number})
}

func paramID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationFieldError(name, name+" must be a positive number", internal.ErrCodeInvalidID)
	}
	return id, nil
}
