package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	authdomain "saasgate/backend/internal/auth/domain"
	"saasgate/backend/internal/platform/apperr"
)

// ErrorBody is the failure response: {"error": {...}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    apperr.Kind       `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
}

type resultBody struct {
	Message string               `json:"message,omitempty"`
	User    *authdomain.UserView `json:"user,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("httpx: encode response failed", "error", err)
	}
}

// WriteError writes err as a failure body with the status of its category.
// Untyped errors are written as upstream.
func WriteError(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Upstream(err)
	}
	WriteJSON(w, ae.Kind.Category().HTTPStatus(), ErrorBody{Error: ErrorDetail{
		Kind:    ae.Kind,
		Message: ae.Message,
		Fields:  ae.Fields,
		Values:  ae.Values,
	}})
}

// WriteResult applies res: session cookie changes first, then a 303 redirect
// when res carries one, else a JSON body.
func WriteResult(w http.ResponseWriter, r *http.Request, c Cookies, res *authdomain.Result) {
	if res == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if res.Session != nil {
		c.SetSession(w, *res.Session)
	}
	if res.ClearSession {
		c.ClearSession(w)
	}
	if res.Redirect != "" {
		http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusOK, resultBody{Message: res.Message, User: res.User})
}
