package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsward/opsward/internal/cmdgate"
)

var (
	execDryRun  bool
	execTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().BoolVar(&execDryRun, "dry-run", false, "Check policy without executing")
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 0, "Execution timeout (default 30s)")
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <program> [args...]",
	Short: "Run a command through the allowlist gate",
	Long: "Validates the program, subcommand, and flags against the command policy\n" +
		"before spawning. Blocked commands are never executed; exit code 77\n" +
		"indicates a policy block.",
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(false, false)
	if err != nil {
		return err
	}
	defer rt.close()

	program := args[0]
	cmdArgs := args[1:]

	if execDryRun {
		if err := rt.commands.Check(program, cmdArgs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(77)
		}
		fmt.Println("allowed")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	res, err := rt.commands.Run(ctx, program, cmdArgs, cmdgate.Options{Timeout: execTimeout})
	if err != nil {
		var policyErr *cmdgate.PolicyError
		if errors.As(err, &policyErr) {
			fmt.Fprintln(os.Stderr, policyErr)
			os.Exit(77)
		}
		return err
	}

	fmt.Print(res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}
