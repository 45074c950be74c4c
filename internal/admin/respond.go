package admin

import (
	"encoding/json"
	"net/http"

	"github.com/picoHz/taxy-sub001/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAPIErr maps err through apierr's Kind→status table when err
// carries an *apierr.Error, falling back to 500 for anything else
// (an invariant violation, since every control-loop path is meant to
// return apierr errors exclusively).
func writeAPIErr(w http.ResponseWriter, err error) {
	if apiErr, ok := apierr.As(err); ok {
		writeError(w, apierr.HTTPStatus(apiErr.Kind), apiErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
