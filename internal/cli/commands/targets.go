// buildctl targets — list the build tool targets buildctl can dispatch.
package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/f9-o/buildctl/internal/dispatch"
	"github.com/f9-o/buildctl/pkg/pprint"
)

type targetInfo struct {
	Target      string `json:"target"`
	Description string `json:"description"`
}

func NewTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "targets",
		Short:        "List every build tool target and the command that reaches it",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())

			var infos []targetInfo
			for _, t := range dispatch.Targets(rt.Registry) {
				infos = append(infos, targetInfo{Target: t, Description: dispatch.Describe(t)})
			}

			if rt.Flags.JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(infos)
			}

			table := pprint.NewTable("TARGET", "DESCRIPTION")
			for _, i := range infos {
				table.AddRow(i.Target, i.Description)
			}
			table.Render()
			return nil
		},
	}
}
