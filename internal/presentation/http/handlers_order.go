package httppresentation

import (
	"net/http"

	apporder "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/order"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	"github.com/go-chi/chi/v5"
)

const headerIdempotencyKey = "Idempotency-Key"

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}
	o, err := h.svc.CreateOrder.Execute(r.Context(), apporder.CreateOrderInput{
		UserID:          identityFrom(r.Context()).UserID,
		IdempotencyKey:  r.Header.Get(headerIdempotencyKey),
		ShippingAddress: req.ShippingAddress.toDomain(),
		Payment:         req.Payment.toDomain(),
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders.Execute(r.Context(), apporder.ListOrdersInput{
		UserID: identityFrom(r.Context()).UserID,
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	o, err := h.svc.GetOrder.Execute(r.Context(), apporder.GetOrderInput{
		UserID:  id.UserID,
		Admin:   id.Admin,
		OrderID: chi.URLParam(r, "orderID"),
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.CancelOrder.Execute(r.Context(), apporder.CancelOrderInput{
		UserID:  identityFrom(r.Context()).UserID,
		OrderID: chi.URLParam(r, "orderID"),
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}
	id := identityFrom(r.Context())
	o, err := h.svc.UpdateOrderStatus.Execute(r.Context(), apporder.UpdateOrderStatusInput{
		ActorID: id.UserID,
		Admin:   id.Admin,
		OrderID: chi.URLParam(r, "orderID"),
		Status:  domorder.Status(req.Status),
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
