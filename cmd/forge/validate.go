package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zeusync/forge/internal/config"
	"github.com/zeusync/forge/internal/core/prefab"
	"github.com/zeusync/forge/pkg/concurrent"
)

func newValidateCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check unit prefab files for decoding and hierarchy errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := prefab.Validate[*UnitData](); err != nil {
				return err
			}

			results := concurrent.Map(cmd.Context(), args, cfg.LoaderWorkers, validateFile)
			var failed int
			for i, res := range results {
				if res.err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", args[i], res.err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d entities)\n", args[i], res.entities)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d prefabs invalid", failed, len(args))
			}
			return nil
		},
	}
}

type validation struct {
	entities int
	err      error
}

func validateFile(_ context.Context, name string) validation {
	raw, err := os.ReadFile(name)
	if err != nil {
		return validation{err: err}
	}
	p, err := prefab.YAMLFormat[*UnitData]{KnownFields: true}.Import(raw)
	if err != nil {
		return validation{err: err}
	}
	if err := prefab.ValidateParents(p); err != nil {
		return validation{err: err}
	}
	return validation{entities: p.Len()}
}
