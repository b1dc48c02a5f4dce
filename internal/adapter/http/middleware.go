package adapthttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	passwordHeader  = "X-Password"
	requestIDHeader = "X-Request-ID"
)

// requirePassword rejects the request with 401 unless the shared secret is
// supplied in the X-Password header or a top-level "password" body field.
// The body is buffered and handed on untouched.
func (s *Server) requirePassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		password := r.Header.Get(passwordHeader)
		if password == "" && r.Body != nil {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, codeValidation, "could not read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			password = passwordFromBody(body)
		}

		if err := s.gate.Verify(password); err != nil {
			writeError(w, http.StatusUnauthorized, codeInvalidPassword, "invalid password")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func passwordFromBody(body []byte) string {
	var probe struct {
		Password string `json:"password"`
	}
	// Arrays and malformed bodies simply carry no password.
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.Password
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// loggingMiddleware logs one line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s req=%s", r.Method, r.URL.Path, rec.status,
			time.Since(start).Round(time.Microsecond), r.Header.Get(requestIDHeader))
	})
}

// withRequestID propagates the caller's X-Request-ID or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// withCORS allows the static front end to be served from another origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+passwordHeader)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
