// Command adduser creates an account directly in the database.
//
//	adduser -username maria -email maria@example.com -password s3cretpass [-full-name "Maria"] [-admin]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"academy/internal/config"
	"academy/internal/identity"
	"academy/internal/logging"
	"academy/internal/store"
)

func main() {
	var (
		username = flag.String("username", "", "login name (required)")
		email    = flag.String("email", "", "email address (required)")
		password = flag.String("password", "", "password, at least 8 characters with a letter and a digit (required)")
		fullName = flag.String("full-name", "", "display name")
		admin    = flag.Bool("admin", false, "grant the admin role")
	)
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if *username == "" || *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn().Msg("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrate schema failed")
	}

	in := identity.NewUser{Username: *username, Email: *email, Password: *password, Role: identity.RoleUser}
	if *fullName != "" {
		in.FullName = fullName
	}
	if *admin {
		in.Role = identity.RoleAdmin
	}

	users := identity.NewService(identity.NewRepository(db.Client))
	u, err := users.Register(ctx, in)
	if err != nil {
		logger.Fatal().Err(err).Str("username", *username).Msg("create user failed")
	}
	logger.Info().Int64("id", u.ID).Str("username", u.Username).Str("role", string(u.Role)).Msg("user created")
}
