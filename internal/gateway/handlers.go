package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/astimpay-bridge/internal/common"
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

// Handler exposes the checkout-facing initiation endpoint and the operator
// payment-data readback.
type Handler struct {
	Gateways map[string]*Initiator
	Store    store.Store
	Validate *validator.Validate
}

type initiateRequest struct {
	OrderID int64 `json:"orderId" validate:"required,gt=0"`
}

// Initiate creates a payment session for the order named in the body using
// the gateway named in the route.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Gateways == nil {
		common.JSONError(w, http.StatusInternalServerError, "GATEWAY_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	gatewayKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "gateway")))
	initiator, ok := h.Gateways[gatewayKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "GATEWAY_NOT_SUPPORTED", "unknown gateway", nil)
		return
	}
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required", nil)
			return
		}
	}

	instruction, err := initiator.Initiate(r.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidOrder):
			common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", err.Error(), nil)
		case errors.Is(err, ErrNoShippableAmount):
			common.JSONError(w, http.StatusBadRequest, "NO_SHIPPABLE_AMOUNT", err.Error(), nil)
		case errors.Is(err, ErrProvider):
			common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INITIATE_FAILED", err.Error(), nil)
		}
		return
	}
	common.JSON(w, http.StatusOK, instruction)
}

type paymentDataResponse struct {
	Status        string  `json:"status"`
	PaymentMethod string  `json:"paymentMethod"`
	SenderNumber  string  `json:"senderNumber"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId"`
	InvoiceID     string  `json:"invoiceId"`
	PaymentType   string  `json:"paymentType"`
}

// PaymentData returns the stored confirmation attached to an order, the
// read-only view operators see next to the order.
func (h *Handler) PaymentData(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "GATEWAY_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	orderID := common.ParseID(chi.URLParam(r, "orderId"))
	if orderID <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return
	}
	data, err := h.Store.GetPaymentData(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PAYMENT_DATA_NOT_FOUND", "no payment data recorded", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_DATA_ERROR", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, paymentDataResponse{
		Status:        data.Status,
		PaymentMethod: data.PaymentMethod,
		SenderNumber:  data.SenderNumber,
		Amount:        data.Amount,
		TransactionID: data.TransactionID,
		InvoiceID:     data.InvoiceID,
		PaymentType:   data.PaymentType,
	})
}
