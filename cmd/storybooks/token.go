package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/config"
	"github.com/joestump/storybooks/internal/db"
	"github.com/joestump/storybooks/internal/store"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage personal access tokens for the JSON API",
	}
	cmd.AddCommand(newTokenCreateCmd(), newTokenListCmd(), newTokenRevokeCmd())
	return cmd
}

// openForUser opens the database and resolves the user owning email. The
// user must have logged in at least once.
func openForUser(ctx context.Context, email string) (*sqlx.DB, *store.User, error) {
	if email == "" {
		return nil, nil, errors.New("--email is required")
	}
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(database, cfg.DB.Driver); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	user, err := store.NewUserStore(database).GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		_ = database.Close()
		return nil, nil, fmt.Errorf("no user with email %s; they must log in once first", email)
	}
	if err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return database, user, nil
}

func newTokenCreateCmd() *cobra.Command {
	var (
		email     string
		name      string
		expiresIn time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a token and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			database, user, err := openForUser(cmd.Context(), email)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			plaintext, rec, err := auth.IssueToken(cmd.Context(), auth.NewSQLTokenStore(database), user.ID, name, expiresIn)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token %q created for %s (id %s).\n", rec.Name, user.Email, rec.ID)
			if rec.ExpiresAt.Valid {
				fmt.Fprintf(out, "Expires %s.\n", rec.ExpiresAt.Time.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "\n%s\n\nIt will not be shown again.\n", plaintext)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user who owns the token")
	cmd.Flags().StringVar(&name, "name", "", "label for the token")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "lifetime such as 720h; 0 never expires")
	return cmd
}

func newTokenListCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, user, err := openForUser(cmd.Context(), email)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			tokens, err := auth.NewSQLTokenStore(database).ListByUser(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED\tLAST USED\tSTATE")
			now := time.Now()
			for _, t := range tokens {
				lastUsed := "never"
				if t.LastUsedAt.Valid {
					lastUsed = t.LastUsedAt.Time.Format(time.RFC3339)
				}
				state := "active"
				switch {
				case t.RevokedAt.Valid:
					state = "revoked"
				case !t.Active(now):
					state = "expired"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339), lastUsed, state)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the token owner")
	return cmd
}

func newTokenRevokeCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, user, err := openForUser(cmd.Context(), email)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := auth.NewSQLTokenStore(database).Revoke(cmd.Context(), args[0], user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token %s revoked.\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the token owner")
	return cmd
}
