package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/safetywatch/internal/config"
	"github.com/mr1hm/safetywatch/internal/repository"
	"github.com/mr1hm/safetywatch/internal/seed"
)

func seedCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo users, contacts, rules, locations and alerts",
		Long: `Load a fixed demo data set. Records have stable ids, so running seed
again keeps existing rows and only fills in missing ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := repository.Open(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := seed.Run(cmd.Context(), store, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Database seeding completed")
			fmt.Fprintf(out, "  users:              %d\n", s.Users)
			fmt.Fprintf(out, "  emergency contacts: %d\n", s.Contacts)
			fmt.Fprintf(out, "  detection rules:    %d\n", s.Rules)
			fmt.Fprintf(out, "  locations:          %d\n", s.Locations)
			fmt.Fprintf(out, "  alerts:             %d\n", s.Alerts)
			fmt.Fprintf(out, "  unresolved:         %d\n", s.Unresolved)
			fmt.Fprintf(out, "  critical:           %d\n", s.Critical)
			fmt.Fprintf(out, "  high:               %d\n", s.High)
			return nil
		},
	}
}

func resetCommand(cfg *config.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every row from every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset %s database without --yes", cfg.DB.Driver)
			}
			store, err := repository.Open(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all data")
	return cmd
}
