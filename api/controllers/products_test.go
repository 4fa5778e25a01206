package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	product "github.com/reloved-shop/reloved-backend/internal/products"
	pkgerrors "github.com/reloved-shop/reloved-backend/pkg/errors"
)

type stubProductService struct {
	products map[uuid.UUID]*product.ProductDTO
	created  *product.CreateProductInput
	updated  *product.UpdateProductInput
}

func (s *stubProductService) ListProducts(_ context.Context) ([]product.ProductDTO, error) {
	out := make([]product.ProductDTO, 0, len(s.products))
	for _, dto := range s.products {
		out = append(out, *dto)
	}
	return out, nil
}

func (s *stubProductService) GetProduct(_ context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	dto, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return dto, nil
}

func (s *stubProductService) CreateProduct(_ context.Context, input product.CreateProductInput) (*product.ProductDTO, error) {
	s.created = &input
	return &product.ProductDTO{ID: uuid.New(), Name: input.Name, PriceCents: input.PriceCents, Stock: input.Stock, IsActive: true}, nil
}

func (s *stubProductService) UpdateProduct(_ context.Context, productID uuid.UUID, input product.UpdateProductInput) (*product.ProductDTO, error) {
	dto, ok := s.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	s.updated = &input
	return dto, nil
}

func newProductRouter(svc product.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/products/{productId}", ProductDetail(svc, nil))
	r.Patch("/products/{productId}", AdminProductUpdate(svc, nil))
	return r
}

func TestProductListReturnsCatalog(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	svc := &stubProductService{products: map[uuid.UUID]*product.ProductDTO{
		id: {ID: id, Name: "denim jacket", PriceCents: 4500, Stock: 2, IsActive: true},
	}}

	w := httptest.NewRecorder()
	ProductList(svc, nil)(w, httptest.NewRequest(http.MethodGet, "/products", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Products []product.ProductDTO `json:"products"`
	}
	decodeData(t, w, &resp)
	if len(resp.Products) != 1 || resp.Products[0].Name != "denim jacket" {
		t.Fatalf("products = %+v, want the seeded item", resp.Products)
	}
}

func TestProductDetailUnknownID(t *testing.T) {
	t.Parallel()
	router := newProductRouter(&stubProductService{products: map[uuid.UUID]*product.ProductDTO{}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/products/%s", uuid.New()), nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestProductDetailRejectsMalformedID(t *testing.T) {
	t.Parallel()
	router := newProductRouter(&stubProductService{products: map[uuid.UUID]*product.ProductDTO{}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAdminProductCreate(t *testing.T) {
	t.Parallel()
	svc := &stubProductService{products: map[uuid.UUID]*product.ProductDTO{}}

	body, _ := json.Marshal(map[string]any{
		"name":        "wool scarf",
		"price_cents": 1200,
		"variants":    []map[string]any{{"size": "M", "stock": 3}},
	})
	w := httptest.NewRecorder()
	AdminProductCreate(svc, nil)(w, httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.created == nil || svc.created.Name != "wool scarf" || len(svc.created.Variants) != 1 {
		t.Fatalf("created = %+v, want the submitted payload", svc.created)
	}
}

func TestAdminProductCreateRejectsMissingName(t *testing.T) {
	t.Parallel()
	svc := &stubProductService{products: map[uuid.UUID]*product.ProductDTO{}}

	body, _ := json.Marshal(map[string]any{"price_cents": 1200})
	w := httptest.NewRecorder()
	AdminProductCreate(svc, nil)(w, httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if svc.created != nil {
		t.Fatalf("create reached the service on invalid input")
	}
}

func TestAdminProductUpdate(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	svc := &stubProductService{products: map[uuid.UUID]*product.ProductDTO{
		id: {ID: id, Name: "leather boots", PriceCents: 8000, IsActive: true},
	}}
	router := newProductRouter(svc)

	body, _ := json.Marshal(map[string]any{"price_cents": 7500})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/products/%s", id), bytes.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.updated == nil || svc.updated.PriceCents == nil || *svc.updated.PriceCents != 7500 {
		t.Fatalf("updated = %+v, want price_cents 7500", svc.updated)
	}
}
