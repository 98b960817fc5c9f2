package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/teeny-box/teenybox-server/internal/config"
	"github.com/teeny-box/teenybox-server/internal/middleware"

	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCommand = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.IsProduction() {
			return errors.New("refusing to issue tokens in production")
		}

		token, err := middleware.IssueToken(cfg, tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCommand.Flags().StringVar(&tokenUser, "user", "", "user id placed in the sub claim")
	tokenCommand.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCommand.MarkFlagRequired("user")

	rootCommand.AddCommand(tokenCommand)
}
