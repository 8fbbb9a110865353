package cmd

import (
	"context"
	"fmt"

	"github.com/mindful-app/realtime-service/internal/auth"
	"github.com/mindful-app/realtime-service/internal/database"
	"github.com/mindful-app/realtime-service/internal/store"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue a bearer token for an existing user (local testing)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	user, err := store.NewUserStore(db).FindByID(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("user %s: %w", args[0], err)
	}
	token, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL).Issue(user.ID, user.Username)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
