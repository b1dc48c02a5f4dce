package adapthttp

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"dietprogress/internal/domain"
)

type entryPayload struct {
	ID      int64          `json:"id"`
	Date    string         `json:"date"`
	Weight  *domain.Number `json:"weight"`
	BodyFat *domain.Number `json:"bodyFat"`
}

func (p entryPayload) entry() (domain.ProgressEntry, error) {
	if p.Date == "" || p.Weight == nil || p.BodyFat == nil {
		return domain.ProgressEntry{}, &domain.ValidationError{Message: "date, weight and bodyFat are required"}
	}
	return domain.ProgressEntry{
		ID:      p.ID,
		Date:    p.Date,
		Weight:  float64(*p.Weight),
		BodyFat: float64(*p.BodyFat),
	}, nil
}

func (s *Server) handleProgressList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.progress.List(r.Context())
	if err != nil {
		s.writeStoreError(w, "list progress", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleProgressStats(w http.ResponseWriter, r *http.Request) {
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = domain.UnitKg
	}
	if unit != domain.UnitKg && unit != domain.UnitLb {
		writeError(w, http.StatusBadRequest, codeValidation, `unit must be "kg" or "lb"`)
		return
	}
	sum, err := s.stats.Summarize(r.Context(), unit)
	if err != nil {
		s.writeStoreError(w, "progress stats", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleProgressReplace accepts either a bare array of entries or an object
// {"password": ..., "data": [...]}.
func (s *Server) handleProgressReplace(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	var payload []entryPayload
	switch trimmed := bytes.TrimSpace(body); {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := parseJSON(trimmed, &payload); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		var wrapped struct {
			Data *[]entryPayload `json:"data"`
		}
		if err := parseJSON(trimmed, &wrapped); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		if wrapped.Data == nil {
			writeError(w, http.StatusBadRequest, codeValidation, "data must be an array")
			return
		}
		payload = *wrapped.Data
	default:
		writeError(w, http.StatusBadRequest, codeValidation, "data must be an array")
		return
	}

	entries := make([]domain.ProgressEntry, 0, len(payload))
	for i, p := range payload {
		e, err := p.entry()
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("entry %d: %v", i, err))
			return
		}
		entries = append(entries, e)
	}

	result, err := s.progress.ReplaceAll(r.Context(), entries)
	if err != nil {
		s.writeStoreError(w, "replace progress", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": result})
}

func (s *Server) handleProgressAdd(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	var p entryPayload
	if err := parseJSON(body, &p); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	e, err := p.entry()
	if err != nil {
		s.writeStoreError(w, "add progress", err)
		return
	}

	result, err := s.progress.Add(r.Context(), e.Date, e.Weight, e.BodyFat)
	if err != nil {
		s.writeStoreError(w, "add progress", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": result})
}

func (s *Server) handleProgressDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid id")
		return
	}
	result, err := s.progress.Delete(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, "delete progress", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": result})
}

// writeStoreError maps service errors onto status codes. Anything that is not
// a known domain outcome is logged and reported as a generic failure.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, codeValidation, verr.Error())
	case errors.Is(err, domain.ErrDuplicateDate):
		writeError(w, http.StatusBadRequest, codeDuplicateDate, "an entry already exists for this date")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "entry not found")
	default:
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, codeStorage, "storage failure")
	}
}
