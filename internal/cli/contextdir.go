package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opsward/opsward/internal/pathgate"
)

func init() {
	rootCmd.AddCommand(contextCmd)
}

var contextCmd = &cobra.Command{
	Use:   "context <dir>",
	Short: "List the files a context directory would contribute",
	Long: "Applies the stricter context-directory rules (no parent traversal, no\n" +
		"system roots) and lists the readable files under the directory.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(false, false)
		if err != nil {
			return err
		}
		defer rt.close()

		res, err := rt.paths.CheckContextDir(args[0])
		if err != nil {
			var denied *pathgate.DeniedError
			if errors.As(err, &denied) {
				fmt.Fprintln(os.Stderr, denied)
				os.Exit(77)
			}
			return err
		}

		entries, err := os.ReadDir(res.RealPath)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(res.RealPath, e.Name())
			if _, err := rt.paths.Check(path); err != nil {
				continue
			}
			if err := rt.paths.CheckReadable(path); err != nil {
				continue
			}
			fmt.Println(path)
		}
		return nil
	},
}
