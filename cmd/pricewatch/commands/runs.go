package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"go-pricewatch/internal/model"
)

// RunsCmd shows the export audit log.
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent export runs",
	RunE:  runRuns,
}

var runsLimit int

func init() {
	RunsCmd.Flags().IntVar(&runsLimit, "limit", 0, "Number of runs to show (default export.runs_limit)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	limit := runsLimit
	if limit <= 0 {
		limit = cfg.Export.RunsLimit
	}
	runs, err := s.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		pterm.Info.Println("No export runs recorded")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(runsTable(runs)).Render()
}

func runsTable(runs []model.ExportRun) pterm.TableData {
	data := pterm.TableData{{"ID", "Type", "Mode", "Status", "Rows", "Started", "Took", "Error"}}
	for _, run := range runs {
		took := "-"
		if run.FinishedAt != nil {
			took = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		data = append(data, []string{
			run.ID,
			run.ExportType,
			run.Mode,
			string(run.Status),
			pterm.Sprint(run.RowCount),
			run.StartedAt.Local().Format(time.DateTime),
			took,
			run.ErrorMessage,
		})
	}
	return data
}
