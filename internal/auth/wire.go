package auth

import (
	"database/sql"

	"github.com/google/wire"

	"voat/config"
	"voat/internal/auth/signup"
	"voat/internal/auth/user"
	"voat/internal/email"
)

// ProvideUserStorage is a Wire provider function that creates a user.PostgresStorage
func ProvideUserStorage(db *sql.DB) *user.PostgresStorage {
	return user.NewUserPostgresStorage(db)
}

// ProvideSignupStorage is a Wire provider function that creates a signup.PostgresStorage
func ProvideSignupStorage(db *sql.DB) *signup.PostgresStorage {
	return signup.NewSignupPostgresStorage(db)
}

func ProvideGenerator() Generator {
	return NewGenerator()
}

func ProvideTokenIssuer(cfg *config.Config) *TokenIssuer {
	return NewTokenIssuer(cfg.JWTSecret)
}

func ProvideService(
	db *sql.DB,
	userStorage *user.PostgresStorage,
	signupStorage *signup.PostgresStorage,
	sender *email.Sender,
	gen Generator,
	tokens *TokenIssuer,
	cfg *config.Config,
) *Service {
	return NewService(
		db,
		userStorage, userStorage, userStorage,
		signupStorage, signupStorage, signupStorage, signupStorage,
		sender, gen, tokens, cfg.FrontendURL)
}

func ProvideMiddleware(tokens *TokenIssuer) *Middleware {
	return NewAuthMiddleware(tokens)
}

func ProvideJSONHandler(service *Service) *JSONHandler {
	return NewJSONAuthHandler(service)
}

var Set = wire.NewSet(
	ProvideUserStorage,
	ProvideSignupStorage,
	ProvideGenerator,
	ProvideTokenIssuer,
	ProvideService,
	ProvideMiddleware,
	ProvideJSONHandler,
)
