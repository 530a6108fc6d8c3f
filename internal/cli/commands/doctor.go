// buildctl doctor — check the toolchain, project files and container runtime.
package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/f9-o/buildctl/internal/container"
	"github.com/f9-o/buildctl/internal/health"
	"github.com/f9-o/buildctl/pkg/errs"
	"github.com/f9-o/buildctl/pkg/pprint"
)

func NewDoctorCmd() *cobra.Command {
	var withContainer bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the project can be bootstrapped and built",
		Example: `  buildctl doctor
  buildctl doctor --container`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			checker := health.NewChecker(rt.Root, rt.Config.Toolchain, rt.Config.Container, rt.Log)

			if withContainer {
				engine, err := container.NewEngine(rt.Config.Container, rt.Runner, rt.Log)
				if err != nil {
					return errs.Wrap(err, errs.ErrContainerEngine, "doctor.engine")
				}
				defer engine.Close()
				checker.Engine = engine
			}

			results := checker.Run(cmd.Context())
			if rt.Flags.JSONOutput {
				if err := json.NewEncoder(os.Stdout).Encode(results); err != nil {
					return err
				}
			} else {
				table := pprint.NewTable("CHECK", "STATUS", "DETAIL")
				for _, r := range results {
					table.AddRow(r.Name, string(r.Status), r.Detail)
				}
				table.Render()
			}

			if !health.Healthy(results) {
				return errs.Newf(errs.ErrValidation, "doctor", "one or more checks failed").
					WithResource(rt.Root)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withContainer, "container", false, "Also probe the container runtime and image")
	return cmd
}
