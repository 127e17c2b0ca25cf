package api

import (
	"github.com/google/wire"

	"voat/config"
	"voat/internal/auth"
)

// ProvideServer is a Wire provider function that creates the HTTP server
func ProvideServer(cfg *config.Config, authHandler *auth.JSONHandler, authMiddleware *auth.Middleware) *Server {
	return NewServer(cfg.Addr, authHandler, authMiddleware)
}

var Set = wire.NewSet(ProvideServer)
