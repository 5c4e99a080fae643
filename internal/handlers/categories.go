package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notekeeper/apiserver/internal/services"
)

const (
	msgInvalidCategoryID    = "Invalid category id"
	msgCategoryNameRequired = "Category name is required"
)

// CategoryHandler serves the caller's categories.
type CategoryHandler struct {
	categories *services.CategoryService
}

func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// CategoryRouter registers category routes. The router must already be
// behind RequireAuth.
func CategoryRouter(r chi.Router, categories *services.CategoryService) {
	handler := NewCategoryHandler(categories)

	r.Get("/", handler.ListCategories)
	r.Post("/", handler.CreateCategory)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.Get("/", handler.GetCategory)
		r.Delete("/", handler.DeleteCategory)
	})
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	categories, err := h.categories.List(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, CategoryResponse{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, msgCategoryNameRequired)
		return
	}

	category, err := h.categories.Create(r.Context(), identity, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CategoryResponse{ID: category.ID, Name: category.Name})
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidCategoryID)
		return
	}

	category, err := h.categories.Get(r.Context(), identity, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryResponse{ID: category.ID, Name: category.Name})
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r, "categoryID")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidCategoryID)
		return
	}

	if err := h.categories.Delete(r.Context(), identity, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Category deleted"})
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
