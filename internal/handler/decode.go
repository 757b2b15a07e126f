package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evp-nightshift/messenger/internal/domain"
)

const maxBodyBytes = 64 << 10

var (
	errInvalidJSON  = &domain.ValidationError{Reason: "invalid JSON in request body"}
	errBodyTooLarge = errors.New("request body too large")
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errInvalidJSON
	}
	return nil
}
