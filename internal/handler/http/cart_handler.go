package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/petite-maison/internal/cart"
	"github.com/vasiliy-maslov/petite-maison/internal/order"
)

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type CheckoutRequest struct {
	ShippingName    *string `json:"shipping_name,omitempty" validate:"omitempty,max=200"`
	ShippingAddress *string `json:"shipping_address,omitempty" validate:"omitempty,max=500"`
	ShippingCity    *string `json:"shipping_city,omitempty" validate:"omitempty,max=100"`
	ShippingZip     *string `json:"shipping_zip,omitempty" validate:"omitempty,max=20"`
	ShippingCountry string  `json:"shipping_country,omitempty" validate:"omitempty,len=2"`
}

type CheckoutResponse struct {
	Order      *order.Order `json:"order"`
	ItemsCount int          `json:"items_count"`
}

// CartHandler serves the cart and checkout. Checkout lives here because the
// route sits under /cart.
type CartHandler struct {
	carts    cart.Service
	orders   order.Service
	validate *validator.Validate
}

func NewCartHandler(carts cart.Service, orders order.Service) *CartHandler {
	return &CartHandler{
		carts:    carts,
		orders:   orders,
		validate: validator.New(),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	c, err := h.carts.GetCart(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	line, err := h.carts.AddItem(r.Context(), identity.UserID, req.ProductID, quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add item to cart")
		return
	}
	respondWithJSON(w, http.StatusCreated, line)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	itemID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	line, err := h.carts.UpdateItem(r.Context(), identity.UserID, itemID, req.Quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update cart item")
		return
	}
	respondWithJSON(w, http.StatusOK, line)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}
	itemID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(r.Context(), identity.UserID, itemID); err != nil {
		respondWithServiceError(w, err, "Failed to remove cart item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrAbort(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	// пустое тело допустимо: адрес необязателен
	if !decodeOptionalAndValidate(w, r, h.validate, &req) {
		return
	}

	addr := order.ShippingAddress{
		Name:    req.ShippingName,
		Address: req.ShippingAddress,
		City:    req.ShippingCity,
		Zip:     req.ShippingZip,
		Country: req.ShippingCountry,
	}

	o, err := h.orders.Checkout(r.Context(), identity.UserID, addr, clientIP(r))
	if err != nil {
		respondWithServiceError(w, err, "Checkout failed")
		return
	}

	respondWithJSON(w, http.StatusCreated, CheckoutResponse{Order: o, ItemsCount: o.ItemsCount})
}
