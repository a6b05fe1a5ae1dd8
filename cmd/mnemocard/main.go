package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemocard/mnemocard/botservice"
	"github.com/mnemocard/mnemocard/internal/config"
	"github.com/mnemocard/mnemocard/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:   "mnemocard",
	Short: "Flashcard bot service",
}

func main() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return botservice.Run()
		},
	}
	rootCmd.AddCommand(serveCmd)

	webhookCmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the webhook registration",
	}
	webhookCmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Register the configured webhook URL with the bot API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := newClient()
			if err != nil {
				return err
			}
			if cfg.WebhookURL == "" {
				return fmt.Errorf("MNEMOCARD_WEBHOOK_URL is not set")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return client.SetWebhook(ctx, cfg.WebhookURL+cfg.WebhookPath)
		},
	})
	webhookCmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return client.DeleteWebhook(ctx)
		},
	})
	rootCmd.AddCommand(webhookCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*config.Config, *telegram.Client, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	return cfg, telegram.NewClient(cfg.BotToken, cfg.TelegramBaseURL), nil
}
