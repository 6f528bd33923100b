package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/susu3304/chipledger/internal/ledger"
	"github.com/susu3304/chipledger/internal/poker"
)

func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	encoded := base64.URLEncoding.EncodeToString(b)
	if len(encoded) > length {
		return encoded[:length]
	}
	return encoded
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v) == nil
}

// statusOf maps service and ledger errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, poker.ErrNotFound), errors.Is(err, ledger.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, poker.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, poker.ErrConflict),
		errors.Is(err, poker.ErrDiscrepancy),
		errors.Is(err, ledger.ErrSessionClosed),
		errors.Is(err, ledger.ErrDuplicatePlayer):
		return http.StatusConflict
	case errors.Is(err, poker.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrUnknownType),
		errors.Is(err, ledger.ErrInvalidEndpoints),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrUnknownPlayer):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, "internal error", status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
