package rest

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	customersvc "github.com/vladislavdragonenkov/crm/internal/service/customer"
	ordersvc "github.com/vladislavdragonenkov/crm/internal/service/order"
)

// Handler отдаёт JSON API поверх прикладных сервисов.
type Handler struct {
	customers *customersvc.Service
	orders    *ordersvc.Service
	logger    *log.Entry
}

// NewHandler создаёт REST-обработчик.
func NewHandler(customers *customersvc.Service, orders *ordersvc.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "rest")
	}
	return &Handler{
		customers: customers,
		orders:    orders,
		logger:    logger,
	}
}

// Register вешает маршруты API на mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /customers", h.createCustomer)
	mux.HandleFunc("GET /customers/{id}", h.getCustomer)
	mux.HandleFunc("PUT /customers/{id}/address", h.updateAddress)
	mux.HandleFunc("PUT /customers/{id}/personal-info", h.updatePersonalInfo)
	mux.HandleFunc("POST /customers/{id}/vip", h.promoteToVip)
	mux.HandleFunc("PUT /customers/{id}/credit-limit", h.updateCreditLimit)
	mux.HandleFunc("POST /customers/{id}/purchases", h.registerPurchase)
	mux.HandleFunc("POST /customers/{id}/deactivate", h.deactivateCustomer)
	mux.HandleFunc("POST /customers/{id}/reactivate", h.reactivateCustomer)
	mux.HandleFunc("GET /customers/{id}/orders", h.listOrders)

	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /orders/{id}/items", h.addOrderItem)
	mux.HandleFunc("POST /orders/{id}/discounts", h.applyDiscount)
	mux.HandleFunc("POST /orders/{id}/confirm", h.confirmOrder)
	mux.HandleFunc("POST /orders/{id}/pay", h.payOrder)
	mux.HandleFunc("POST /orders/{id}/ship", h.shipOrder)
	mux.HandleFunc("POST /orders/{id}/deliver", h.deliverOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancelOrder)
}

type createCustomerRequest struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	PhoneNumber string     `json:"phone_number"`
	Email       string     `json:"email"`
	Address     addressDTO `json:"address"`
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.customers.CreateCustomer(customersvc.CreateCustomerInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Street:      req.Address.Street,
		City:        req.Address.City,
		State:       req.Address.State,
		ZipCode:     req.Address.ZipCode,
		Country:     req.Address.Country,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(customer))
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.GetCustomer(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressDTO
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.customers.UpdateAddress(r.PathValue("id"), customersvc.AddressInput{
		Street:  req.Street,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		Country: req.Country,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

type personalInfoRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) updatePersonalInfo(w http.ResponseWriter, r *http.Request) {
	var req personalInfoRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.customers.UpdatePersonalInfo(r.PathValue("id"), req.FirstName, req.LastName, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

func (h *Handler) promoteToVip(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.PromoteToVip(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

type creditLimitRequest struct {
	TotalMinor int64  `json:"total_minor"`
	Currency   string `json:"currency"`
}

func (h *Handler) updateCreditLimit(w http.ResponseWriter, r *http.Request) {
	var req creditLimitRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.customers.UpdateCreditLimit(r.PathValue("id"), req.TotalMinor, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

type purchaseRequest struct {
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

func (h *Handler) registerPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.customers.RegisterPurchase(r.PathValue("id"), req.OrderID, req.AmountMinor, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

type deactivateRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) deactivateCustomer(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.customers.DeactivateCustomer(r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

func (h *Handler) reactivateCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.ReactivateCustomer(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(customer))
}

// decode читает JSON-тело запроса; ошибка формата отвечает 400.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WithError(err).Debug("malformed request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}
