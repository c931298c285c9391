package api

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the uniform envelope for every request outcome. All
// failures are reported as {"success":false,"message":...} over HTTP
// 200; the health check is the only route with a distinct status code.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *TeleTokApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *TeleTokApp) fail(w http.ResponseWriter, message string) {
	s.writeJson(w, http.StatusOK, apiResponse{Success: false, Message: message})
}
