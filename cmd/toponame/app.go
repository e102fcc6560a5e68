package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chazu/toponame/pkg/config"
	"github.com/chazu/toponame/pkg/engine"
	"github.com/chazu/toponame/pkg/kernel"
	"github.com/chazu/toponame/pkg/kernel/sdfx"
	"github.com/chazu/toponame/pkg/store"
)

// app carries the settings shared by every subcommand.
type app struct {
	cfgFile string
	format  string
	cfg     config.Config
	logger  *slog.Logger
}

func (a *app) bindFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default .toponame.yaml)")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", "text", "output format: text or yaml")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().Bool("in-memory", false, "use a throwaway in-memory store")
	root.PersistentFlags().String("store", "", "reference store directory")
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("store.in_memory", root.PersistentFlags().Lookup("in-memory"))
	_ = viper.BindPFlag("store.path", root.PersistentFlags().Lookup("store"))
}

func (a *app) init(cmd *cobra.Command) error {
	if a.format != "text" && a.format != "yaml" {
		return fmt.Errorf("unknown output format %q", a.format)
	}
	if err := config.Init(a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	return nil
}

// kernel returns an sdfx kernel sewing at the configured tolerance.
func (a *app) kernel() *sdfx.SdfxKernel {
	k := sdfx.New()
	k.Tolerance = a.cfg.Tolerance
	return k
}

func (a *app) engine(k kernel.Kernel) *engine.Engine {
	return engine.NewEngine(
		engine.WithKernel(k),
		engine.WithComparator(a.cfg.Comparator()),
		engine.WithLogger(a.logger),
		engine.WithTimeout(a.cfg.EvalTimeout),
	)
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.cfg.StoreOptions(a.logger))
}

// evalFile evaluates the script at path. Script errors are returned as one
// error listing every message.
func (a *app) evalFile(path string) (*engine.Model, error) {
	return a.evalWith(a.kernel(), path)
}

// evalWith is evalFile on kernel k.
func (a *app) evalWith(k kernel.Kernel, path string) (*engine.Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, evalErrs, err := a.engine(k).Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		msg := path
		for _, e := range evalErrs {
			msg += "\n  " + e.Error()
		}
		return nil, fmt.Errorf("evaluation failed: %s", msg)
	}
	return m, nil
}
