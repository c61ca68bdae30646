// Bootstrap script: create an account (or mark an existing one as
// subscribed) without going through the HTTP API. The billing flow that
// normally flips is_subscribed is external to this service, so this is
// the operational escape hatch.
//
// Usage:
//
//	INIT_ACCOUNT_USERNAME=alice INIT_ACCOUNT_PASSWORD=secret \
//	INIT_ACCOUNT_EMAIL=alice@example.com INIT_ACCOUNT_SUBSCRIBED=true \
//	go run ./scripts/init_account.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"oracle/internal/config"
	"oracle/internal/model/auth"
	"oracle/internal/pkg/id"
	"oracle/internal/pkg/logger"
	"oracle/internal/pkg/mongodb"
	"oracle/internal/pkg/password"
	authrepo "oracle/internal/repository/auth"
)

func main() {
	// Same config search path as cmd/root.go
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.oracle")

	viper.SetEnvPrefix("ORACLE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		os.Exit(1)
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	client, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mongo")
	}
	defer func() {
		_ = client.Close(context.Background())
	}()

	ctx := context.Background()
	userRepo := authrepo.NewUserRepo(client.Database())

	username := os.Getenv("INIT_ACCOUNT_USERNAME")
	if username == "" {
		username = "oracle"
	}
	passwordPlain := os.Getenv("INIT_ACCOUNT_PASSWORD")
	if passwordPlain == "" {
		passwordPlain = "oracle123"
	}
	email := os.Getenv("INIT_ACCOUNT_EMAIL")
	if email == "" {
		email = "oracle@example.com"
	}
	subscribed := os.Getenv("INIT_ACCOUNT_SUBSCRIBED") == "true"

	account, err := userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, authrepo.ErrNotFound) {
			log.Info().Str("username", username).Msg("account not found, will create")
			if err := createAccount(ctx, userRepo, username, email, passwordPlain, subscribed); err != nil {
				log.Fatal().Err(err).Msg("create account failed")
			}
		} else {
			log.Fatal().Err(err).Msg("failed to query account")
		}
	} else {
		log.Info().Str("username", username).Bool("subscribed", subscribed).Msg("account exists, updating subscription")
		if err := userRepo.SetSubscribed(ctx, account.ID, subscribed); err != nil {
			log.Fatal().Err(err).Msg("update subscription failed")
		}
	}

	fmt.Printf("Account initialized: username=%s subscribed=%v\n", username, subscribed)
}

func createAccount(ctx context.Context, repo *authrepo.UserRepo, username, email, pwd string, subscribed bool) error {
	hashed, err := password.Hash(pwd)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	account := &auth.Account{
		ID:           id.New(),
		Username:     username,
		Email:        email,
		Password:     hashed,
		IsSubscribed: subscribed,
	}

	return repo.Create(ctx, account)
}
