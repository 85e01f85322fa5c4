package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/config"
	"github.com/atlasextract/atlas/internal/svcctx"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	Long: `Write a config.yaml with every setting at its default to the atlas home
directory (default ~/.atlas). Existing files are kept unless --force is given.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		h := svcctx.HomeFrom(cmd.Context())
		logger := svcctx.LoggerFrom(cmd.Context())
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", h.ConfigPath())
		}
		if !h.Exists() {
			if err := h.EnsureExists(); err != nil {
				return err
			}
			logger.Info("created home directory", "path", h.Path())
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", h.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		if f := svcs.Config.File(); f != "" {
			svcs.Logger.Info("config file", "path", f)
		}
		return api.Output(svcs.Config.Get())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
