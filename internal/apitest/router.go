package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/habitual/internal/constants"
)

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordMiddleware)
	r.Use(s.failureMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login/", s.login)
			r.Post("/registration/", s.register)
			r.Post("/token/refresh/", s.refreshToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/habits/", s.listHabits)
			r.Post("/habits/", s.createHabit)
			r.Patch("/habits/{id}/", s.updateHabit)
			r.Delete("/habits/{id}/", s.deleteHabit)
			r.Post("/habits/{id}/archive/", s.setArchived(true))
			r.Post("/habits/{id}/unarchive/", s.setArchived(false))
			r.Post("/habits/{id}/complete/", s.completeHabit)

			r.Get("/categories/", s.listCategories)
			r.Post("/categories/", s.createCategory)
			r.Post("/categories/update_layout/", s.updateLayout)
			r.Patch("/categories/{id}/", s.updateCategory)
			r.Delete("/categories/{id}/", s.deleteCategory)

			r.Get("/tags/", s.listTags)
			r.Post("/tags/", s.createTag)
			r.Patch("/tags/{id}/", s.updateTag)
			r.Delete("/tags/{id}/", s.deleteTag)
		})
	})
	return r
}

func relativePath(path string) string {
	return strings.TrimPrefix(path, "/api/")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		idx := len(s.requests)
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          relativePath(r.URL.Path),
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(constants.RequestIDHeader),
			Body:          body,
		})
		s.mu.Unlock()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.mu.Lock()
		s.requests[idx].Status = rec.status
		s.mu.Unlock()
	})
}

func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + relativePath(r.URL.Path)
		s.mu.Lock()
		n := s.failures[key]
		if n > 0 {
			s.failures[key] = n - 1
		}
		s.mu.Unlock()
		if n > 0 {
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		forced := s.force401 > 0
		if forced {
			s.force401--
		}
		_, valid := s.access[token]
		s.mu.Unlock()

		if forced || token == "" || !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, map[string][]string{field: {message}})
}

func decode(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
