package commands

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"go-pricewatch/internal/export"
	"go-pricewatch/internal/sqlq"
)

// TypesCmd lists the registered export types.
var TypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List export types and their filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, _ := sqlq.DialectForDriver(cfg.Database.Driver)
		reg := export.DefaultRegistry(d)
		return pterm.DefaultTable.WithHasHeader().WithData(typesTable(reg)).Render()
	},
}

func typesTable(reg *export.Registry) pterm.TableData {
	data := pterm.TableData{{"Type", "File", "Sheet", "Columns", "Filters"}}
	for _, def := range reg.List() {
		data = append(data, []string{
			def.ID,
			def.Filename(),
			def.SheetName,
			pterm.Sprint(len(def.Columns)),
			strings.Join(def.FilterNames(), ", "),
		})
	}
	return data
}
