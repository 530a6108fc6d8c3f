// buildctl history — show recent dispatches recorded in the state db.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/f9-o/buildctl/internal/dispatch"
	"github.com/f9-o/buildctl/pkg/errs"
	"github.com/f9-o/buildctl/pkg/pprint"
)

func NewHistoryCmd() *cobra.Command {
	var (
		limit      int
		action     string
		id         string
		bootstraps bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent builds, lints, runs and bootstraps",
		Example: `  buildctl history
  buildctl history --action build --limit 5
  buildctl history --bootstraps
  buildctl history --id 3f1c9a2e-...`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			if rt.State == nil {
				return errs.Newf(errs.ErrStateRead, "history", "run history is unavailable").
					WithAdvice("set state.enabled: true in buildctl.yaml")
			}
			if action != "" {
				if _, err := dispatch.ParseAction(action); err != nil {
					return err
				}
			}

			if id != "" {
				rec, err := rt.State.GetRun(id)
				if err != nil {
					return errs.Wrap(err, errs.ErrStateRead, "history.run")
				}
				if rec == nil {
					return errs.Newf(errs.ErrStateRead, "history.run", "no run recorded with that id").WithResource(id)
				}
				if rt.Flags.JSONOutput {
					return json.NewEncoder(os.Stdout).Encode(rec)
				}
				pprint.KV("ID", rec.ID)
				pprint.KV("Target", rec.Subcommand)
				pprint.KV("Root", rec.ProjectRoot)
				pprint.KV("Started", stamp(rec.StartedAt))
				pprint.KV("Duration", duration(rec.DurationMS))
				pprint.KV("Result", string(rec.Result))
				pprint.KV("Exit", strconv.Itoa(rec.ExitCode))
				if rec.Error != "" {
					pprint.KV("Error", rec.Error)
				}
				return nil
			}

			if bootstraps {
				recs, err := rt.State.ListBootstraps(limit)
				if err != nil {
					return errs.Wrap(err, errs.ErrStateRead, "history.bootstraps")
				}
				if rt.Flags.JSONOutput {
					return json.NewEncoder(os.Stdout).Encode(recs)
				}
				table := pprint.NewTable("STARTED", "BINARY", "COMPILED", "RESULT", "EXIT", "DURATION")
				for _, r := range recs {
					table.AddRow(stamp(r.StartedAt), r.Binary, strconv.FormatBool(r.Compiled), string(r.Result),
						strconv.Itoa(r.ExitCode), duration(r.DurationMS))
				}
				table.Render()
				return nil
			}

			recs, err := rt.State.ListRuns(action, limit)
			if err != nil {
				return errs.Wrap(err, errs.ErrStateRead, "history.runs")
			}
			if rt.Flags.JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(recs)
			}
			if len(recs) == 0 {
				pprint.Info("no runs recorded yet.")
				return nil
			}
			table := pprint.NewTable("STARTED", "TARGET", "RESULT", "EXIT", "DURATION", "ROOT")
			for _, r := range recs {
				table.AddRow(stamp(r.StartedAt), r.Subcommand, string(r.Result),
					strconv.Itoa(r.ExitCode), duration(r.DurationMS), r.ProjectRoot)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records (0 = all)")
	cmd.Flags().StringVar(&action, "action", "", "Only show one action: clean, build, lint, docs or run")
	cmd.Flags().StringVar(&id, "id", "", "Show a single run by id")
	cmd.Flags().BoolVar(&bootstraps, "bootstraps", false, "Show build tool bootstraps instead of dispatches")
	return cmd
}

func stamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func duration(ms int64) string {
	return fmt.Sprint(time.Duration(ms) * time.Millisecond)
}
