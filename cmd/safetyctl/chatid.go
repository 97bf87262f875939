package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"

	"github.com/mr1hm/safetywatch/internal/config"
)

// chatIDCommand prints the chat id of everyone who messages the bot, so an
// operator can link it with users.linkTelegram.
func chatIDCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat-id",
		Short: "Print the Telegram chat id of anyone who messages the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Telegram.Token == "" {
				return fmt.Errorf("TELEGRAM_BOT_TOKEN is required (or pass --token)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			b, err := bot.New(cfg.Telegram.Token, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
				if update.Message == nil {
					return
				}
				from := "unknown"
				if update.Message.From != nil {
					from = update.Message.From.FirstName
					if update.Message.From.Username != "" {
						from += " (@" + update.Message.From.Username + ")"
					}
				}
				fmt.Fprintf(out, "chat id %d from %s: %q\n", update.Message.Chat.ID, from, update.Message.Text)
			}))
			if err != nil {
				return fmt.Errorf("failed to start telegram bot: %w", err)
			}

			fmt.Fprintln(out, "Send any message to the bot. Press Ctrl+C to stop.")
			b.Start(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Telegram.Token, "token", cfg.Telegram.Token, "telegram bot token")
	return cmd
}
