package commands

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"go-pricewatch/internal/export"
	"go-pricewatch/pkg/utils"
)

// ExportCmd writes one export to a local xlsx file.
var ExportCmd = &cobra.Command{
	Use:   "export <type>",
	Short: "Write an export workbook to a file",
	Long: `Run an export without the HTTP API. Filters take the same names and
values as the download endpoint's query parameters.

Examples:
  pricewatch export regiones -f q=norte -f active=1
  pricewatch export precios --stream -f from=2024-03-01 -f to=2024-03-31
  pricewatch export marcas --out /tmp/marcas.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportFilters []string
	exportStream  bool
	exportOut     string
	exportDir     string
)

func init() {
	ExportCmd.Flags().StringArrayVarP(&exportFilters, "filter", "f", nil, "Filter as name=value (repeatable)")
	ExportCmd.Flags().BoolVar(&exportStream, "stream", false, "Stream rows instead of buffering the workbook")
	ExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default <dir>/<type>_<timestamp>.xlsx)")
	ExportCmd.Flags().StringVar(&exportDir, "dir", "exports", "Output directory when --out is not set")
}

func runExport(cmd *cobra.Command, args []string) error {
	filters, err := utils.ParseKeyValues(exportFilters)
	if err != nil {
		return err
	}

	s, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	d := newDispatcher(s, nil)
	req := export.Request{Type: args[0], Filters: export.Filters(filters), Streaming: exportStream}

	path := exportOut
	if path == "" {
		def, err := d.Registry().Resolve(req.Type)
		if err != nil {
			return err
		}
		path, err = utils.NewOutputManager(exportDir).ExportFilePath(def.FilenameStem, time.Now())
		if err != nil {
			return err
		}
	}

	res, size, err := exportToFile(cmd.Context(), d, req, path)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Exported %d rows to %s (%d bytes, run %s, %s)\n", res.Rows, path, size, res.RunID, res.Mode)
	return nil
}

// exportToFile dispatches req into path and reports the size of the
// written file. The file only appears once the export has succeeded.
func exportToFile(ctx context.Context, d *export.Dispatcher, req export.Request, path string) (export.Result, int64, error) {
	fr, err := utils.NewFileResponse(path)
	if err != nil {
		return export.Result{}, 0, err
	}
	res, err := d.Dispatch(ctx, req, fr)
	if err != nil {
		fr.Discard()
		return res, 0, err
	}
	if err := fr.Commit(); err != nil {
		return res, 0, err
	}
	size, err := utils.NewOutputManager(filepath.Dir(path)).GetFileSize(path)
	if err != nil {
		return res, 0, err
	}
	return res, size, nil
}
