package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/auth"
	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		scopes []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an API bearer token",
		Long: `Token signs a bearer token for a calling service with auth.jwt_secret.
Scopes: ` + fmt.Sprint(auth.AllScopes),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(c.cfg.Auth.JWTSecret) < config.MinJWTSecretLength {
				return fmt.Errorf("auth.jwt_secret must be at least %d characters", config.MinJWTSecretLength)
			}
			token, expiresAt, err := auth.NewTokenService(c.cfg.Auth).Issue(args[0], scopes, ttl)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"token":      token,
				"expires_at": expiresAt.UTC(),
				"scopes":     scopes,
			})
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", auth.AllScopes, "Granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to auth.token_ttl")
	return cmd
}
