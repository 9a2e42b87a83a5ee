package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/logger"
	"github.com/edgard/searchbyimage/internal/saucenao"
	"github.com/edgard/searchbyimage/internal/search"
	"github.com/edgard/searchbyimage/internal/settings"
	"github.com/edgard/searchbyimage/internal/trigger"
)

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <image-url> [threshold]",
		Short: "Run one image search and print the reply text",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold := trigger.DefaultThreshold
			if len(args) == 2 {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid threshold %q: %w", args[1], err)
				}
				threshold = v
			}

			cfg, err := config.Read(configPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSearch(); err != nil {
				return err
			}
			log := logger.New(cmd.ErrOrStderr(), cfg.Logger.Level, cfg.Logger.JSON)

			s, err := settings.Load(cfg.Search.SettingsPath, log)
			if err != nil {
				return err
			}
			client, err := saucenao.NewClient(saucenao.Config{
				Endpoint:       cfg.Search.Endpoint,
				APIKey:         s.APIKey,
				ConnectTimeout: cfg.Search.ConnectTimeout,
				ReadTimeout:    cfg.Search.ReadTimeout,
			}, log)
			if err != nil {
				return err
			}

			outcome, err := search.NewEngine(client, log).Search(cmd.Context(), args[0], threshold)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Text)
			return nil
		},
	}
}
