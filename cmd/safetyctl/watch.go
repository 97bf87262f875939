package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/safetywatch/internal/config"
	"github.com/mr1hm/safetywatch/internal/dashboard"
	internalgrpc "github.com/mr1hm/safetywatch/internal/grpc"
	"github.com/mr1hm/safetywatch/internal/rpcclient"
)

func watchCommand(cfg *config.Config) *cobra.Command {
	var (
		mode     string
		grpcAddr string
		resolve  string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow unresolved alerts and user positions",
		Long: `Show the live dashboard view in the terminal.

Modes:
  poll    re-read alerts and users every --interval
  stream  follow the server's NDJSON snapshot stream
  grpc    follow the gRPC snapshot stream at --grpc-addr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			client := rpcclient.New(cfg.Dashboard.ServerURL, 10*time.Second)
			d := dashboard.New(client, dashboard.WithAlertLimit(cfg.Feed.AlertLimit), dashboard.WithOnChange(func(v dashboard.View) {
				render(out, v)
			}))

			if resolve != "" {
				if err := d.Refresh(ctx); err != nil {
					return err
				}
				return d.ResolveAlert(ctx, resolve)
			}

			switch mode {
			case "poll":
				return d.Poll(ctx, cfg.Dashboard.PollInterval)
			case "stream":
				return d.Follow(ctx, client)
			case "grpc":
				gc, err := internalgrpc.Dial(grpcAddr)
				if err != nil {
					return err
				}
				defer gc.Close()
				err = d.Follow(ctx, dashboard.StreamFunc(gc.StreamSnapshots))
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			return fmt.Errorf("unknown mode %q (poll, stream, grpc)", mode)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", "stream", "poll, stream or grpc")
	flags.StringVar(&cfg.Dashboard.ServerURL, "server-url", cfg.Dashboard.ServerURL, "safetywatch HTTP base url")
	flags.DurationVar(&cfg.Dashboard.PollInterval, "interval", cfg.Dashboard.PollInterval, "poll interval")
	flags.StringVar(&grpcAddr, "grpc-addr", fmt.Sprintf("localhost:%d", cfg.GRPC.Port), "safetywatch gRPC address")
	flags.StringVar(&resolve, "resolve", "", "resolve this alert id and exit")
	return cmd
}

func render(w io.Writer, v dashboard.View) {
	fmt.Fprintf(w, "\n== %s  %d unresolved alerts, %d users ==\n", v.UpdatedAt.Format(time.RFC3339), len(v.Alerts), len(v.Users))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ALERT\tSEVERITY\tCATEGORY\tUSER\tAGE\tMESSAGE")
	for _, a := range v.Alerts {
		user := a.UserID
		if a.User != nil {
			user = a.User.DisplayName()
		}
		state := string(a.Severity)
		if a.IsResolved {
			state += " (resolved)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, state, a.Category, user,
			time.Since(a.CreatedAt).Truncate(time.Second), a.Message)
	}
	_ = tw.Flush()

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tLOCATION\tSEEN")
	for _, u := range v.Users {
		where, seen := "-", "-"
		if loc := u.LatestLocation(); loc != nil {
			where = fmt.Sprintf("%.4f,%.4f", loc.Latitude, loc.Longitude)
			seen = time.Since(loc.RecordedAt).Truncate(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.DisplayName(), where, seen)
	}
	_ = tw.Flush()
}
