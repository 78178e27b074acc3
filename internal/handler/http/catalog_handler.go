package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/petite-maison/internal/catalog"
)

type CatalogHandler struct {
	service catalog.Service
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

var errInvalidQuery = errors.New("invalid query parameter")

// parseListFilter reads catalog query parameters. Out-of-range paging is
// clamped later by the service; only malformed numbers are rejected here.
func parseListFilter(q url.Values) (catalog.ListFilter, error) {
	f := catalog.ListFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		Search:    strings.TrimSpace(q.Get("search")),
		Featured:  q.Get("featured") == "true",
		Exclusive: q.Get("exclusive") == "true",
		Sort:      q.Get("sort"),
		Order:     strings.ToLower(q.Get("order")),
		Page:      1,
		Limit:     catalog.DefaultLimit,
	}

	var err error
	if f.MinPrice, err = parseDecimalParam(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parseDecimalParam(q, "max_price"); err != nil {
		return f, err
	}
	if v := q.Get("page"); v != "" {
		if f.Page, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("%w: page", errInvalidQuery)
		}
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("%w: limit", errInvalidQuery)
		}
	}
	return f, nil
}

func parseDecimalParam(q url.Values, name string) (*decimal.Decimal, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidQuery, name)
	}
	return &d, nil
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListFeatured(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list featured products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		respondWithError(w, http.StatusBadRequest, "Slug parameter cannot be empty")
		return
	}

	p, err := h.service.GetProduct(r.Context(), slug)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}
