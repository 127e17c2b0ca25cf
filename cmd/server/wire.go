//go:build wireinject
// +build wireinject

package main

import (
	"database/sql"

	"github.com/google/wire"

	"voat/config"
	"voat/internal/api"
	"voat/internal/auth"
	"voat/internal/email"
)

var AppSet = wire.NewSet(email.Set, auth.Set, api.Set, ProvideApp)

func InitializeApp(db *sql.DB, cfg *config.Config) *App {
	wire.Build(AppSet)

	return &App{}
}
