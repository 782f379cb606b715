package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"smartexpense/internal/actions"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// ownerHeader carries the authenticated user id set by the auth gateway.
const ownerHeader = "X-User-ID"

type ownerHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

// owner rejects requests without an owner id with 401.
func (s *Server) owner(h ownerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(ownerHeader))
		if ownerID == "" {
			writeError(w, http.StatusUnauthorized, core.KindUnauthorized.String(), core.Message(core.ErrUnauthorized, "No autenticado"))
			return
		}
		h(w, r, ownerID)
	})
}

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Default().WithComponent(log.ComponentHTTP).Error("Failed to encode response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeResult maps an action result to a status code: field errors are 422
// and failures follow their kind.
func writeResult[T any](w http.ResponseWriter, res actions.Result[T], successStatus int) {
	switch {
	case res.Success:
		if successStatus == http.StatusNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, successStatus, res)
	case res.Invalid():
		writeJSON(w, http.StatusUnprocessableEntity, res)
	case res.Failure != nil:
		writeJSON(w, statusFor(res.Failure.Kind), res)
	default:
		writeJSON(w, http.StatusInternalServerError, res)
	}
}

func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindConflict:
		return http.StatusConflict
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindUpstream:
		return http.StatusBadGateway
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Invalid JSON body", log.FieldError, err)
		writeError(w, http.StatusBadRequest, "bad_request", "Cuerpo JSON inválido")
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter. Missing values are 0.
func queryInt(r *http.Request, key string) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func monthQuery(w http.ResponseWriter, r *http.Request) (actions.MonthQuery, bool) {
	month, okMonth := queryInt(r, "month")
	year, okYear := queryInt(r, "year")
	if !okMonth || !okYear {
		writeError(w, http.StatusBadRequest, "bad_request", "Mes o año inválido")
		return actions.MonthQuery{}, false
	}
	return actions.MonthQuery{Month: month, Year: year}, true
}
