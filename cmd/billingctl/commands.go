package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyforge-app/config"
	"storyforge-app/database"
	"storyforge-app/internal/app/payments"
	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/infra/redisflags"
	"storyforge-app/internal/store"
)

func checkEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-env",
		Short: "Resolve configuration and list every setting with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			writeEnvReport(cmd.OutOrStdout(), config.Keys(), os.Getenv)
			cfg, err := config.Resolve()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nOK: provider %s\n", cfg.PaymentProvider)
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the configured payment provider answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			health := payments.FromConfig(cfg).Health.Ping(ctx)
			if err := printJSON(cmd.OutOrStdout(), health); err != nil {
				return err
			}
			if !health.Reachable {
				return fmt.Errorf("%s unreachable", health.Provider)
			}
			return nil
		},
	}
}

func attemptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recent checkout attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			if status != "" && status != billing.AttemptCreated && status != billing.AttemptFailed && status != billing.AttemptPending {
				return fmt.Errorf("unknown status %q", status)
			}

			cfg, err := config.Resolve()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBURL, true)
			if err != nil {
				return err
			}
			attempts, err := store.New(db).ListRecentCheckoutAttempts(cmd.Context(), status, limit)
			if err != nil {
				return err
			}
			writeAttempts(cmd.OutOrStdout(), attempts)
			return nil
		},
	}
	cmd.Flags().StringP("status", "s", "", "Filter by status (pending, created, failed)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum rows")
	return cmd
}

func syncFlagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-flag [subscription_id]",
		Short: "Show whether automatic sync already ran for a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve()
			if err != nil {
				return err
			}
			if cfg.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is not set; flags live in the database sync_attempts table")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			client, err := redisflags.Connect(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()

			attempted, err := redisflags.New(client, "").Attempted(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s attempted=%t\n", args[0], attempted)
			return nil
		},
	}
}

func isSecretKey(key string) bool {
	if key == "DB_URL" || key == "AMQP_URL" || key == "REDIS_URL" {
		return true
	}
	for _, s := range []string{"SECRET", "KEY", "PASSWORD"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func writeEnvReport(w io.Writer, keys []string, lookup func(string) string) {
	for _, k := range keys {
		v := lookup(k)
		switch {
		case v == "":
			v = "(unset)"
		case isSecretKey(k):
			v = config.MaskSecret(v)
		}
		fmt.Fprintf(w, "%-26s %s\n", k, v)
	}
}

func writeAttempts(w io.Writer, attempts []billing.CheckoutAttempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(w, "no checkout attempts")
		return
	}
	for _, a := range attempts {
		line := fmt.Sprintf("%s  %-9s user=%d product=%s tries=%d", a.CreatedAt.Format(time.RFC3339), a.Status, a.UserID, a.ProductID, a.Tries)
		if a.ErrorCode != "" {
			line += fmt.Sprintf(" error=%s http=%d", a.ErrorCode, a.HTTPStatus)
		}
		fmt.Fprintf(w, "%s  %s\n", a.RequestID, line)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
