package http

import (
	"net/http"

	"smartexpense/internal/actions"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, ownerID string) {
	writeResult(w, s.actions.ListCategories(r.Context(), ownerID), http.StatusOK)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	var form actions.CategoryForm
	if !decodeJSON(w, r, &form) {
		return
	}
	writeResult(w, s.actions.CreateCategory(r.Context(), ownerID, form), http.StatusCreated)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	var form actions.CategoryForm
	if !decodeJSON(w, r, &form) {
		return
	}
	writeResult(w, s.actions.UpdateCategory(r.Context(), ownerID, r.PathValue("id"), form), http.StatusOK)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, ownerID string) {
	writeResult(w, s.actions.DeleteCategory(r.Context(), ownerID, r.PathValue("id")), http.StatusNoContent)
}
