package export

import (
	"context"
	"fmt"
	"net/http"

	"go-pricewatch/internal/sqlq"
	"go-pricewatch/internal/store"
)

// ContentType identifies an xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Querier runs a query on any pooled connection.
type Querier interface {
	QueryContext(ctx context.Context, q sqlq.Query) (store.Rows, error)
}

// Leaser hands out connections for exclusive use.
type Leaser interface {
	Lease(ctx context.Context) (store.Conn, error)
}

// Exporter writes the rows selected by q as a workbook into w and reports
// how many data rows it wrote. It sets the download headers itself.
type Exporter interface {
	Mode() string
	Run(ctx context.Context, def *Definition, q sqlq.Query, w http.ResponseWriter) (int64, error)
}

// SetDownloadHeaders marks the response as an xlsx attachment named after
// def.
func SetDownloadHeaders(h http.Header, def *Definition) {
	h.Set("Content-Type", ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", def.Filename()))
}
