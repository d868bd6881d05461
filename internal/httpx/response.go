package httpx

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// PDF writes rendered document bytes with a download filename.
func PDF(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		_ = err
	}
}
