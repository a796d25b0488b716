package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/zeusync/forge/internal/config"
	"github.com/zeusync/forge/internal/core/app"
	"github.com/zeusync/forge/internal/core/observability/log"
	"github.com/zeusync/forge/internal/core/prefab"
	"github.com/zeusync/forge/internal/core/system"
	"github.com/zeusync/forge/internal/core/systems/motion"
	"github.com/zeusync/forge/internal/injector"
)

type runFlags struct {
	frames  uint64
	fps     int
	prefab  string
	source  string
	profile string
}

func newRunCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a unit prefab and simulate it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fps") {
				cfg.FrameRate = f.fps
			}
			stop, err := startProfile(f.profile)
			if err != nil {
				return err
			}
			defer stop()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, f)
		},
	}
	cmd.Flags().Uint64Var(&f.frames, "frames", 0, "stop after this many frames (0 runs until interrupted)")
	cmd.Flags().IntVar(&f.fps, "fps", 0, "frame rate override (0 is unpaced)")
	cmd.Flags().StringVar(&f.prefab, "prefab", "", "prefab file to load; the built-in squad when empty")
	cmd.Flags().StringVar(&f.source, "source", "", `asset source for --prefab ("redis" or the asset root)`)
	cmd.Flags().StringVar(&f.profile, "profile", "", "write a cpu or mem profile to the working directory")
	return cmd
}

func startProfile(kind string) (func(), error) {
	switch kind {
	case "":
		return func() {}, nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop, nil
	case "mem":
		return profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop, nil
	default:
		return nil, fmt.Errorf("unknown profile %q", kind)
	}
}

func run(ctx context.Context, cfg config.Config, f runFlags) error {
	rt, cleanup, err := injector.InitializeRuntime(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	storage := prefab.NewStorage[*UnitData]()
	d, err := buildDispatcher(rt, storage)
	if err != nil {
		return err
	}

	initial := &loadingState{
		loader:  rt.Loader,
		storage: storage,
		name:    f.prefab,
		source:  f.source,
	}
	a := app.New(rt.World, d, initial,
		app.WithFrameRate(cfg.FrameRate),
		app.WithMaxFrames(f.frames),
		app.WithLogger(rt.Logger),
		app.WithReporter(rt.Reporter),
	)
	if err := a.Run(ctx); err != nil {
		return err
	}
	if initial.err != nil {
		return initial.err
	}
	rt.Logger.Info("simulation finished",
		log.Uint64("frames", a.Frame()),
		log.Int("units", len(Units(rt.World))),
	)
	return nil
}

func buildDispatcher(rt *injector.Runtime, storage *prefab.Storage[*UnitData]) (*system.Dispatcher, error) {
	b := system.NewBuilder(
		system.WithWorkers(rt.Config.Workers),
		system.WithLogger(rt.Logger),
		system.WithReporter(rt.Reporter),
	)
	inst, err := prefab.NewInstantiator[*UnitData]()
	if err != nil {
		return nil, err
	}
	if err := b.Add(prefab.NewProcessor(storage), "prefab_processor"); err != nil {
		return nil, err
	}
	if err := b.Add(inst, "prefab_instantiator", "prefab_processor"); err != nil {
		return nil, err
	}
	b.AddBarrier()
	if err := b.Add(motion.Movement(), "movement"); err != nil {
		return nil, err
	}
	if err := b.Add(Decay(), "decay"); err != nil {
		return nil, err
	}
	return b.Build()
}
