package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"smartexpense/internal/actions"
	"smartexpense/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, ownerID string) {
	q, ok := monthQuery(w, r)
	if !ok {
		return
	}
	page, ok := queryInt(r, "page")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", "Página inválida")
		return
	}
	res := s.actions.ListExpenses(r.Context(), ownerID, actions.ListQuery{
		Month:      q.Month,
		Year:       q.Year,
		CategoryID: r.URL.Query().Get("category_id"),
		Page:       page,
	})
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	writeResult(w, s.actions.GetExpense(r.Context(), ownerID, r.PathValue("id")), http.StatusOK)
}

func (s *Server) handleRecentExpenses(w http.ResponseWriter, r *http.Request, ownerID string) {
	limit, ok := queryInt(r, "limit")
	if !ok || limit < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "Límite inválido")
		return
	}
	writeResult(w, s.actions.RecentExpenses(r.Context(), ownerID, limit), http.StatusOK)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	var form actions.ExpenseForm
	if !decodeJSON(w, r, &form) {
		return
	}
	writeResult(w, s.actions.CreateExpense(r.Context(), ownerID, form), http.StatusCreated)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	var form actions.ExpenseForm
	if !decodeJSON(w, r, &form) {
		return
	}
	writeResult(w, s.actions.UpdateExpense(r.Context(), ownerID, r.PathValue("id"), form), http.StatusOK)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, ownerID string) {
	writeResult(w, s.actions.DeleteExpense(r.Context(), ownerID, r.PathValue("id")), http.StatusNoContent)
}

// handleImport accepts the CSV either as the multipart field "file" or as a
// raw text/csv body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, ownerID string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	body, closeFn, err := s.csvBody(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "El archivo es demasiado grande")
			return
		}
		log.FromContext(r.Context()).DebugContext(r.Context(), "Unreadable CSV upload", log.FieldError, err)
		writeError(w, http.StatusBadRequest, "bad_request", "No se pudo leer el archivo CSV")
		return
	}
	defer closeFn()

	writeResult(w, s.actions.ImportCSV(r.Context(), ownerID, body), http.StatusOK)
}

func (s *Server) csvBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	return file, func() {
		file.Close()
		r.MultipartForm.RemoveAll()
	}, nil
}
