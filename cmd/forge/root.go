package main

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/forge/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "forge",
		Short:         "Run forge scenes built from prefab assets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	loadConfig := func() (config.Config, error) {
		return config.Load(configPath)
	}
	root.AddCommand(newRunCmd(loadConfig), newValidateCmd(loadConfig))
	return root
}
