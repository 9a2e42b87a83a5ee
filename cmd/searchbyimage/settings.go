package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/logger"
	"github.com/edgard/searchbyimage/internal/settings"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the image search settings file",
	}
	cmd.AddCommand(settingsInitCmd())
	return cmd
}

func settingsInitCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the settings file if missing and check the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				cfg, err := config.Read(configPath)
				if err != nil {
					return err
				}
				path = cfg.Search.SettingsPath
			}

			log := logger.New(cmd.ErrOrStderr(), "warn", false)
			_, err := settings.Load(path, log)
			switch {
			case err == nil:
				fmt.Fprintf(cmd.OutOrStdout(), "Settings OK: %s\n", path)
				return nil
			case errors.Is(err, settings.ErrInvalidAPIKey):
				fmt.Fprintf(cmd.OutOrStdout(), "Settings file ready at %s; set apiKey to your %d character SauceNAO key.\n", path, settings.APIKeyLength)
				return nil
			default:
				return err
			}
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "settings file path (default: search.settings_path from config)")
	return cmd
}
