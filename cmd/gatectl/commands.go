package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/gate"
	"newsletter-gate/internal/metrics"
	"newsletter-gate/internal/providers"
)

const commandTimeout = 30 * time.Second

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening storage runs the migrations
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create-user [username]",
		Short: "Create an admin user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.ValidationError("--password is required")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			user, err := a.Storage.CreateUser(ctx, args[0], password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password of the new user")
	return cmd
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired subscribers from the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			n, err := a.Storage.DeleteExpiredSubscribers(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			metrics.AddPurged(n)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired subscribers\n", n)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			count, err := a.Storage.CountSubscribers(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "subscribers\t%d\n", count)
			for _, id := range a.Providers.IDs() {
				enabled, err := a.Settings.Enabled(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", id, enabledLabel(enabled))
			}
			return w.Flush()
		},
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func listsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lists [provider]",
		Short: "Show a provider's lists and their shortcodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			p, err := a.Providers.Get(ctx, args[0])
			if err != nil {
				return err
			}
			lists, err := p.Lists(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSHORTCODE")
			for _, l := range lists {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.Name, providers.Shortcode(p.ID(), l.ID))
			}
			return w.Flush()
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [provider] [list] [email]",
		Short: "Check an address against the local cache and the provider",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, listID, email := args[0], args[1], gate.NormalizeEmail(args[2])

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			cached, err := a.Gate.IsSubscribedByEmail(ctx, provider, email, listID)
			if err != nil {
				return err
			}

			p, err := a.Providers.Get(ctx, provider)
			if err != nil {
				return err
			}
			remote, err := p.IsSubscribed(ctx, email, listID)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "provider lookup failed: %v\n", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "cache\t%t\n", cached)
			fmt.Fprintf(w, "%s\t%t\n", p.Name(), remote)
			return w.Flush()
		},
	}
}
