package adapthttp

import (
	"net/http"
)

// handleVerifyPassword answers 401 for anything but the right password,
// including an empty, oversized or malformed body.
func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if body, err := readBody(w, r); err == nil {
		_ = parseJSON(body, &req)
	}

	if err := s.gate.Verify(req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, codeInvalidPassword, "invalid password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password accepted"})
}
