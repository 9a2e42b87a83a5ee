// Package main contains the entrypoint for the image search bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "searchbyimage",
		Short:         "Group chat bot that finds image sources on SauceNAO",
		Long:          "searchbyimage answers \"以图搜图\" requests in group chats with matching SauceNAO sources.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "path to config.yaml")

	root.AddCommand(serveCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(settingsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
