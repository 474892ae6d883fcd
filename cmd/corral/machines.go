package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/containerd/errdefs"
	"github.com/spf13/cobra"

	"github.com/jbweber/corral/api/v1alpha1"
	"github.com/jbweber/corral/internal/loader"
	"github.com/jbweber/corral/internal/output"
	"github.com/jbweber/corral/internal/vm"
)

func (a *app) registerCmd() *cobra.Command {
	var (
		name    string
		dir     string
		state   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "register [manifest.yaml]",
		Short: "Register a Vagrant machine",
		Long: `Register a machine so corral can drive it.

Either pass a VagrantMachine manifest:

  apiVersion: corral.cofront.xyz/v1alpha1
  kind: VagrantMachine
  metadata:
    name: web
  spec:
    workingDir: ./boxes/web

or describe the machine with flags:

  corral register --name web --dir ./boxes/web

New machines are assumed Stopped. Use --state running to adopt a machine
that vagrant already started.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				m   *v1alpha1.VagrantMachine
				err error
			)

			switch {
			case len(args) == 1:
				if name != "" || dir != "" {
					return fmt.Errorf("--name and --dir cannot be combined with a manifest: %w", errdefs.ErrInvalidArgument)
				}
				m, err = loader.LoadFromFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to load manifest: %w", err)
				}
			case name != "" && dir != "":
				abs, err := filepath.Abs(dir)
				if err != nil {
					return fmt.Errorf("failed to resolve --dir: %w", err)
				}
				m = v1alpha1.NewVagrantMachine(name, abs)
			default:
				return fmt.Errorf("either a manifest or both --name and --dir are required: %w", errdefs.ErrInvalidArgument)
			}

			if cmd.Flags().Changed("state") {
				s := v1alpha1.ParseRunState(state)
				if s == v1alpha1.RunStateUnknown {
					return fmt.Errorf("invalid --state %q: %w", state, errdefs.ErrInvalidArgument)
				}
				m.Status.State = s
			}
			if cmd.Flags().Changed("timeout") {
				m.SetTimeout(timeout)
			}

			if err := vm.Register(cmd.Context(), a.cfg.StateDB, m); err != nil {
				return fmt.Errorf("failed to register machine: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s (%s) in %s\n", m.Name, m.GetState(), m.Spec.WorkingDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "machine name")
	cmd.Flags().StringVar(&dir, "dir", "", "directory containing the Vagrantfile")
	cmd.Flags().StringVar(&state, "state", "", "initial state (stopped, running, destroyed)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-command timeout for this machine (0 waits forever)")
	return cmd
}

func (a *app) forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <name>",
		Short: "Remove a machine from corral without running vagrant",
		Long: `Remove a machine from the state database.

The Vagrant machine itself is left untouched. Run destroy first to remove it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := vm.Forget(cmd.Context(), a.cfg.StateDB, name); err != nil {
				return fmt.Errorf("failed to forget machine: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Forgot %s\n", name)
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <manifest.yaml>",
		Short: "Write a machine's manifest to a file",
		Long: `Write a registered machine as a VagrantMachine manifest.

The manifest keeps the machine's name, UID, spec and current state but not
the outcome of past vagrant commands. Pass it to register to restore the
machine into another state database.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			m, err := vm.Get(cmd.Context(), a.cfg.StateDB, name)
			if err != nil {
				return fmt.Errorf("failed to get machine: %w", err)
			}
			if err := loader.SaveToFile(m.Manifest(), path); err != nil {
				return fmt.Errorf("failed to export machine: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s to %s\n", name, path)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Get details about a machine",
		Long: `Get detailed information about a registered machine.

Output formats:
  -o table  Human-readable table (default)
  -o wide   Table with UID and last state change
  -o yaml   Full VagrantMachine resource, readable by register
  -o json   Full VagrantMachine resource as JSON`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := vm.Get(cmd.Context(), a.cfg.StateDB, args[0])
			if err != nil {
				return fmt.Errorf("failed to get machine: %w", err)
			}
			if err := output.Print(cmd.OutOrStdout(), a.outputOptions(), m); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered machines",
		Long: `List every registered machine with its state, the outcome of the last
vagrant command, and its working directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			machines, err := vm.List(cmd.Context(), a.cfg.StateDB)
			if err != nil {
				return fmt.Errorf("failed to list machines: %w", err)
			}
			if err := output.PrintList(cmd.OutOrStdout(), a.outputOptions(), machines); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}
}
