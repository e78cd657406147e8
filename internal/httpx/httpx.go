// Package httpx carries the JSON response helpers shared by the service
// handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error envelope returned by every service. Code is a
// stable machine-readable identifier; clients match on it, not on Message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes the standard error envelope.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, errorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// DecodeError reads the error envelope from a response body. It returns the
// zero ErrorBody if the body is not in the expected shape.
func DecodeError(body []byte) ErrorBody {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ErrorBody{}
	}
	return resp.Error
}
