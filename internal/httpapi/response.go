package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps a ServiceError to its conventional HTTP status; any
// other error surfaces as 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	if se, ok := acperrors.As(err); ok {
		writeJSON(w, se.HTTPStatus(), map[string]interface{}{"error": se.Message, "code": se.Code, "details": se.Details})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
