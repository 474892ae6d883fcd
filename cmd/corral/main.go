package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/containerd/log"
	"github.com/spf13/cobra"

	"github.com/jbweber/corral/internal/config"
	"github.com/jbweber/corral/internal/output"
	"github.com/jbweber/corral/internal/vm"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds flag values and the configuration resolved before each command.
type app struct {
	configFile   string
	outputFormat string
	noHeaders    bool

	// runner replaces the vagrant process detector in tests.
	runner vm.Runner

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func newApp() *app {
	return &app{}
}

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"state-db":   "state_db",
	"vagrant":    "vagrant.binary",
	"log-level":  "log.level",
	"log-format": "log.format",
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "corral",
		Short: "Corral - Vagrant machine lifecycle tool",
		Long: `Corral drives Vagrant machines between Stopped, Running and Destroyed.

Each machine is registered once with the directory holding its Vagrantfile.
corral then runs vagrant up, halt or destroy there, watches the output to
decide whether the command succeeded, and remembers the resulting state.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default "+config.ConfigFile()+")")
	flags.String("state-db", "", "path to the state database")
	flags.String("vagrant", "", "vagrant executable")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.StringVarP(&a.outputFormat, "output", "o", string(output.FormatTable), "output format (table, wide, yaml, json)")
	flags.BoolVar(&a.noHeaders, "no-headers", false, "omit table headers")

	root.AddCommand(a.registerCmd())
	root.AddCommand(a.forgetCmd())
	root.AddCommand(a.upCmd())
	root.AddCommand(a.haltCmd())
	root.AddCommand(a.destroyCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.getCmd())
	root.AddCommand(a.listCmd())

	return root
}

// loadConfig merges the config file, environment and flags, then applies
// the logging settings.
func (a *app) loadConfig(cmd *cobra.Command) error {
	if err := output.ValidateFormat(a.outputFormat); err != nil {
		return err
	}

	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("failed to set log level: %w", err)
	}
	if err := log.SetFormat(log.OutputFormat(cfg.Log.Format)); err != nil {
		return fmt.Errorf("failed to set log format: %w", err)
	}

	a.cfg = cfg
	log.G(cmd.Context()).WithFields(log.Fields{
		"state_db": cfg.StateDB,
		"vagrant":  cfg.Vagrant.Binary,
	}).Debug("loaded configuration")
	return nil
}

func (a *app) outputOptions() output.Options {
	return output.Options{
		Format:    output.Format(a.outputFormat),
		NoHeaders: a.noHeaders,
	}
}
