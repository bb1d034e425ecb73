package httppresentation

import (
	"net/http"

	appcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/catalog"
	appinventory "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/inventory"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog.ListProducts(r.Context())
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req upsertProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}
	p, err := h.svc.Catalog.UpsertProduct(r.Context(), appcatalog.UpsertProductInput{
		Admin:         identityFrom(r.Context()).Admin,
		ID:            chi.URLParam(r, "productID"),
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}
	productID := chi.URLParam(r, "productID")
	level, err := h.svc.Inventory.Restock(r.Context(), appinventory.RestockInput{
		Admin:     identityFrom(r.Context()).Admin,
		ProductID: productID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: productID, StockQuantity: level})
}
