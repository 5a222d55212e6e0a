package main

import (
	"encoding/json"
	"fmt"
	"os"

	"rental-portal/internal/accounts"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			a.log.Info("schema is up to date", zap.String("database", a.cfg.Database.Type))
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every unit's occupancy status against its tenant name",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.auditor.Audit(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if !report.OK() {
				return errorx.DataIntegrity("%d units violate the occupancy invariant", len(report.Violations))
			}
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	var (
		dryRun        bool
		retentionDays int
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge rejected and cancelled bookings past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Cleanup
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			if retentionDays > 0 {
				cfg.RetentionDays = retentionDays
			}
			result, err := a.cleanup.Purge(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", true, "only report what would be deleted")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "override the configured retention window")
	return cmd
}

func tokenCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := a.tokenService()
			if err != nil {
				return err
			}
			identity, err := a.accounts.FindByUsername(cmd.Context(), username)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateToken(identity.ID, identity.Username, string(identity.Role))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func adminCmd() *cobra.Command {
	var in accounts.RegisterInput
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			in.Role = models.RoleAdmin
			identity, err := a.accounts.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.log.Info("administrator created",
				zap.String("identity_id", identity.ID.String()),
				zap.String("username", identity.Username))
			return printJSON(identity)
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "login name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "display name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("full-name")
	return cmd
}
