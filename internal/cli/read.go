package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsward/opsward/internal/pathgate"
	"github.com/opsward/opsward/internal/redact"
)

var readMaxLines int

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(checkCmd)
	readCmd.Flags().IntVar(&readMaxLines, "max-lines", 0, "Maximum lines to print (default 400)")
}

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Read a file through the path gate",
	Long:  "Prints a capped, secret-redacted view of a file under an allowed directory.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(false, false)
		if err != nil {
			return err
		}
		defer rt.close()

		content, err := rt.paths.ReadFile(args[0], pathgate.Limits{MaxLines: readMaxLines}, redact.Redactor{})
		if err != nil {
			var denied *pathgate.DeniedError
			if errors.As(err, &denied) {
				fmt.Fprintln(os.Stderr, denied)
				os.Exit(77)
			}
			return err
		}
		fmt.Print(content.Text)
		if content.Truncated {
			fmt.Fprintln(os.Stderr, "[truncated]")
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Check a path against the policy without opening it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(false, false)
		if err != nil {
			return err
		}
		defer rt.close()

		res, err := rt.paths.Check(args[0])
		if err != nil {
			var denied *pathgate.DeniedError
			if errors.As(err, &denied) {
				fmt.Fprintln(os.Stderr, denied)
				os.Exit(77)
			}
			return err
		}
		fmt.Println(res.RealPath)
		return nil
	},
}
