package httpx

import (
	"encoding/json"
	"net/http"
)

// maxJSONBody bounds non-multipart request bodies; the only large payload
// this API accepts is the multipart upload, which has its own cap.
const maxJSONBody = 1 << 20

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a bounded JSON body into dst, answering 400 itself on
// failure. The caller returns immediately when this reports false.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, req.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
