package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbweber/corral/api/v1alpha1"
	"github.com/jbweber/corral/internal/output"
	"github.com/jbweber/corral/internal/vm"
)

func (a *app) upCmd() *cobra.Command {
	return a.transitionCmd(v1alpha1.RunStateRunning, &cobra.Command{
		Use:   "up <name>",
		Short: "Start a machine",
		Long: `Run vagrant up for a registered machine.

The machine becomes Running once vagrant reports that it booted or exits
cleanly. Starting a machine that is already Running does nothing.`,
	})
}

func (a *app) haltCmd() *cobra.Command {
	return a.transitionCmd(v1alpha1.RunStateStopped, &cobra.Command{
		Use:   "halt <name>",
		Short: "Stop a running machine",
		Long: `Run vagrant halt for a registered Running machine.

The machine becomes Stopped once vagrant begins a graceful shutdown or exits
cleanly. Halting a machine that is already Stopped does nothing.`,
	})
}

func (a *app) destroyCmd() *cobra.Command {
	return a.transitionCmd(v1alpha1.RunStateDestroyed, &cobra.Command{
		Use:   "destroy <name>",
		Short: "Destroy a machine",
		Long: `Run vagrant destroy -f for a registered machine.

Destroy is best-effort: any exit from vagrant counts as success and the
machine becomes Destroyed. A Destroyed machine cannot be started again;
forget it and register it anew instead.`,
	})
}

// transitionCmd completes cmd with the shared flags and RunE for moving a
// machine to target.
func (a *app) transitionCmd(target v1alpha1.RunState, cmd *cobra.Command) *cobra.Command {
	var timeout time.Duration

	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override the command timeout for this run (0 waits forever)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx := cmd.Context()

		// TransitionOptions reads a zero DefaultTimeout as unset.
		defaultTimeout := a.cfg.Timeout()
		if defaultTimeout == 0 {
			defaultTimeout = -1
		}

		opts := vm.TransitionOptions{
			DefaultTimeout: defaultTimeout,
			Binary:         a.cfg.Vagrant.Binary,
			KillOnTimeout:  a.cfg.KillOnTimeout,
			Runner:         a.runner,
		}
		if cmd.Flags().Changed("timeout") {
			opts.Timeout = timeout
			if timeout <= 0 {
				opts.Timeout = -1
			}
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moving %s to %s...\n", name, target)

		m, err := vm.Transition(ctx, a.cfg.StateDB, name, target, opts)
		if err != nil {
			if m != nil {
				_ = output.Print(cmd.ErrOrStderr(), output.Options{Format: output.FormatTable}, m)
			}
			return fmt.Errorf("failed to move %s to %s: %w", name, target, err)
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is %s\n", name, m.GetState())
		return nil
	}
	return cmd
}
