package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"voat/internal/auth"
)

type Server struct {
	router *mux.Router
	addr   string
}

func NewServer(addr string, authHandler *auth.JSONHandler, authMiddleware *auth.Middleware) *Server {
	router := mux.NewRouter()
	router.Use(Logger())
	router.Use(RateLimitMiddleware(10)) // Limit to 10 requests per second

	server := &Server{
		router: router,
		addr:   addr,
	}
	server.setupRoutes(authHandler, authMiddleware)
	return server
}

func (s *Server) setupRoutes(authHandler *auth.JSONHandler, authMiddleware *auth.Middleware) {
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")
	auth.SetupJSONAuthRoutes(s.router, authHandler, authMiddleware)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
