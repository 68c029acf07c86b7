package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ftpledger: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ftpledger",
		Short: "FTP file ledger operations CLI",
		Long: `ftpledger runs the reconciliation job and the account administration from the
command line, applies database migrations, and launches the server and worker binaries.
Configuration comes from the same environment variables the server reads.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newReconcileCmd(),
		newIngestCmd(),
		newTouchCmd(),
		newAccountCmd(),
		newTestCmd(),
		newServiceRunner("serve", "./cmd/server"),
		newServiceRunner("worker", "./cmd/worker"),
	)
	return cmd
}

func newTestCmd() *cobra.Command {
	var race bool
	var integration bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pkgs := args
			if len(pkgs) == 0 {
				pkgs = []string{"./..."}
			}
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if integration {
				goArgs = append(goArgs, "-tags", "integration")
			}
			goArgs = append(goArgs, pkgs...)
			return runCommand(ctx, "go", goArgs...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable Go race detector")
	cmd.Flags().BoolVar(&integration, "integration", false, "Include tests that need Postgres and Redis")
	return cmd
}

func newServiceRunner(name, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("go run %s", path),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			goArgs := []string{"run", path}
			goArgs = append(goArgs, args...)
			return runCommand(ctx, "go", goArgs...)
		},
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
