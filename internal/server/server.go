// Package server exposes the interactive checker over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"canoncheck/internal/books"
	"canoncheck/internal/pipeline"
)

// Checker is the part of the pipeline the API needs.
type Checker interface {
	Check(ctx context.Context, bookName, backstory string) (*pipeline.CheckResult, error)
	Books() []string
}

type Server struct {
	router  *chi.Mux
	checker Checker
}

func NewServer(checker Checker) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{router: r, checker: checker}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/books", s.handleBooks)
		r.Post("/check", s.handleCheck)
	})
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"books": s.checker.Books()})
}

type checkRequest struct {
	BookName  string `json:"book_name"`
	Backstory string `json:"backstory"`
}

type checkResponse struct {
	Verdict  string         `json:"verdict"`
	Label    int            `json:"label"`
	Evidence []evidenceItem `json:"evidence"`
}

type evidenceItem struct {
	ChunkID string `json:"chunk_id"`
	Text    string `json:"text"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Backstory) == "" {
		respondError(w, http.StatusBadRequest, "backstory is required")
		return
	}
	if req.BookName == "" {
		respondError(w, http.StatusBadRequest, "book_name is required")
		return
	}

	result, err := s.checker.Check(r.Context(), req.BookName, req.Backstory)
	if err != nil {
		if errors.Is(err, books.ErrUnknownBook) {
			respondError(w, http.StatusNotFound, "unknown book")
			return
		}
		respondError(w, http.StatusInternalServerError, "check failed")
		return
	}

	resp := checkResponse{
		Verdict:  result.Verdict.String(),
		Label:    int(result.Verdict),
		Evidence: make([]evidenceItem, 0, len(result.Evidence)),
	}
	for _, c := range result.Evidence {
		resp.Evidence = append(resp.Evidence, evidenceItem{ChunkID: c.ChunkID, Text: c.Text})
	}

	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
