package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	ordersvc "github.com/vladislavdragonenkov/crm/internal/service/order"
)

type createOrderRequest struct {
	CustomerID string         `json:"customer_id"`
	Currency   string         `json:"currency"`
	TaxRateBps int64          `json:"tax_rate_bps,omitempty"`
	Items      []orderItemDTO `json:"items"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([]ordersvc.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ordersvc.ItemInput{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
		})
	}

	order, err := h.orders.CreateOrder(ordersvc.CreateOrderInput{
		CustomerID: req.CustomerID,
		Currency:   req.Currency,
		TaxRateBps: req.TaxRateBps,
		Items:      items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListOrders(r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListDTO(orders))
}

func (h *Handler) addOrderItem(w http.ResponseWriter, r *http.Request) {
	var req orderItemDTO
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.AddItem(r.PathValue("id"), ordersvc.ItemInput{
		ProductID:      req.ProductID,
		Name:           req.Name,
		Quantity:       req.Quantity,
		UnitPriceMinor: req.UnitPriceMinor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

type discountRequest struct {
	Type        string  `json:"type"`
	AmountMinor int64   `json:"amount_minor,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Percentage  float64 `json:"percentage,omitempty"`
	Description string  `json:"description"`
	PolicyID    string  `json:"policy_id"`
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}

	discount, err := buildDiscount(req)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := h.orders.ApplyDiscount(r.PathValue("id"), discount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func buildDiscount(req discountRequest) (domain.Discount, error) {
	switch domain.DiscountType(req.Type) {
	case domain.DiscountTypePercentage:
		return domain.NewPercentageDiscount(req.Percentage, req.Description, req.PolicyID)
	case domain.DiscountTypeFixed, domain.DiscountTypeLoyalty, domain.DiscountTypeVolume:
		amount, err := domain.NewMoney(req.AmountMinor, req.Currency)
		if err != nil {
			return domain.Discount{}, err
		}
		switch domain.DiscountType(req.Type) {
		case domain.DiscountTypeFixed:
			return domain.NewFixedDiscount(amount, req.Description, req.PolicyID)
		case domain.DiscountTypeLoyalty:
			return domain.NewLoyaltyDiscount(amount, req.Description, req.PolicyID)
		default:
			return domain.NewVolumeDiscount(amount, req.Description, req.PolicyID)
		}
	default:
		return domain.Discount{}, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidDiscount, req.Type)
	}
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Confirm)
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Pay)
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Deliver)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Cancel)
}

type shipRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Reason         string `json:"reason"`
}

func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.Ship(r.PathValue("id"), ordersvc.ShipOrderInput{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		Reason:         req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, step func(id, reason string) (*domain.Order, error)) {
	var req transitionRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := step(r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}
