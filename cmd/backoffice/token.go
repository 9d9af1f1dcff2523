package main

import (
	"fmt"
	"time"

	"axiapac.com/backoffice/security"
	"github.com/spf13/cobra"
)

func tokenCmd(flags *globalFlags) *cobra.Command {
	var (
		identity  security.Identity
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an identity token signed with auth.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not set")
			}
			secret, err := security.DecodeSecret(cfg.Auth.JWTSecret)
			if err != nil {
				return fmt.Errorf("failed to decode JWT secret: %w", err)
			}

			token, err := security.CreateIdentityToken(identity, secret, expiresIn)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&identity.ID, "user-id", 0, "User id (required)")
	cmd.Flags().StringVar(&identity.UniqueName, "name", "", "Unique name")
	cmd.Flags().StringVar(&identity.Email, "email", "", "Email")
	cmd.Flags().StringVar(&identity.Provider, "provider", "cli", "Identity provider")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
