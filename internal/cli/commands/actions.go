// buildctl clean|build|lint|docs|run — dispatch a target to the build tool.
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/f9-o/buildctl/internal/dispatch"
	"github.com/f9-o/buildctl/internal/variant"
)

// NewActionCmds returns one subcommand per dispatcher action.
func NewActionCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(dispatch.Actions))
	for _, a := range dispatch.Actions {
		cmds = append(cmds, newActionCmd(a))
	}
	return cmds
}

var actionShort = map[dispatch.Action]string{
	dispatch.ActionClean: "The clean command",
	dispatch.ActionBuild: "The build command",
	dispatch.ActionLint:  "The lint command",
	dispatch.ActionDocs:  "The docs command",
	dispatch.ActionRun:   "The run command",
}

func newActionCmd(action dispatch.Action) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:          string(action),
		Short:        actionShort[action],
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			return rt.Dispatcher().Dispatch(cmd.Context(), dispatch.Request{
				Action:  action,
				Variant: variant.Variant(typ),
			})
		},
	}

	if action.TakesVariant() {
		title := strings.ToUpper(string(action[:1])) + string(action[1:])
		cmd.Use += " [--type VARIANT]"
		cmd.Example = fmt.Sprintf("  buildctl %s\n  buildctl %s --type dev_server", action, action)
		cmd.Flags().StringVar(&typ, "type", string(variant.DefaultVariant),
			fmt.Sprintf("%s type, one of %s", title, strings.Join(variant.Default().Names(), ", ")))
	}
	return cmd
}
