// buildctl init — scaffold a buildctl.yaml at the project root.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/f9-o/buildctl/internal/core/config"
	"github.com/f9-o/buildctl/pkg/pprint"
)

func NewInitCmd() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a buildctl.yaml at the project root (or the given directory)",
		Example: `  buildctl init
  buildctl init --path ..`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			if targetPath == "" {
				targetPath = rt.Root
			}
			outFile := filepath.Join(targetPath, config.FileName)
			if _, err := os.Stat(outFile); err == nil {
				return fmt.Errorf("%s already exists at %s — delete it first to reinitialise", config.FileName, outFile)
			}

			if rt.Flags.DryRun {
				fmt.Printf("[DRY RUN] would write %s\n", outFile)
				return nil
			}
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("create dir %q: %w", targetPath, err)
			}
			if err := os.WriteFile(outFile, []byte(config.DefaultConfigTemplate), 0644); err != nil {
				return fmt.Errorf("write %s: %w", config.FileName, err)
			}

			pprint.Success("Created %s", outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Target directory (defaults to the project root)")
	return cmd
}
