package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/sqlq"
	"go-pricewatch/internal/store"
)

// fakeRows is a scripted cursor. When failAt >= 0 the cursor stops after
// failAt rows and reports failErr from Err. When panicAt > 0, scanning row
// panicAt panics.
type fakeRows struct {
	cols    []string
	data    [][]any
	failAt  int
	failErr error
	panicAt int

	pos       int
	nextCalls int
	err       error
	closes    atomic.Int32
}

func newFakeRows(cols []string, data [][]any) *fakeRows {
	return &fakeRows{cols: cols, data: data, failAt: -1}
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }

func (r *fakeRows) Next() bool {
	r.nextCalls++
	if r.failAt >= 0 && r.pos == r.failAt {
		r.err = r.failErr
		return false
	}
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.panicAt > 0 && r.pos == r.panicAt {
		panic("driver: bad connection state")
	}
	row := r.data[r.pos-1]
	for i := range dest {
		*(dest[i].(*any)) = row[i]
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Close() error {
	r.closes.Add(1)
	return nil
}

type fakeConn struct {
	rows     *fakeRows
	queryErr error
	queries  []sqlq.Query
	closes   atomic.Int32
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args ...any) (store.Rows, error) {
	c.queries = append(c.queries, sqlq.Query{Text: query, Args: args})
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.rows, nil
}

func (c *fakeConn) Close() error {
	c.closes.Add(1)
	return nil
}

// fakeSource serves both exporters and counts every data store access.
type fakeSource struct {
	conn     *fakeConn
	rows     *fakeRows
	leaseErr error
	queryErr error
	touches  atomic.Int32
}

func (s *fakeSource) Lease(context.Context) (store.Conn, error) {
	s.touches.Add(1)
	if s.leaseErr != nil {
		return nil, s.leaseErr
	}
	return s.conn, nil
}

func (s *fakeSource) QueryContext(_ context.Context, _ sqlq.Query) (store.Rows, error) {
	s.touches.Add(1)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.rows, nil
}

var errPeerGone = errors.New("connection reset by peer")

// brokenWriter is a response whose client disconnects after accepting
// okWrites body writes.
type brokenWriter struct {
	header   http.Header
	status   int
	okWrites int
	writes   int
	body     bytes.Buffer
}

func newBrokenWriter(okWrites int) *brokenWriter {
	return &brokenWriter{header: http.Header{}, okWrites: okWrites}
}

func (w *brokenWriter) Header() http.Header { return w.header }
func (w *brokenWriter) WriteHeader(code int) { w.status = code }

func (w *brokenWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.okWrites {
		return 0, errPeerGone
	}
	return w.body.Write(p)
}

func (w *brokenWriter) Flush() {}

var placeholderRE = regexp.MustCompile(`\$(\d+)`)

// requirePlaceholdersMatchArgs checks that q uses exactly $1..$len(args).
func requirePlaceholdersMatchArgs(t *testing.T, q sqlq.Query) {
	t.Helper()
	seen := map[int]bool{}
	for _, m := range placeholderRE.FindAllStringSubmatch(q.Text, -1) {
		n, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		seen[n] = true
	}
	require.Len(t, seen, len(q.Args), q.Text)
	for i := 1; i <= len(q.Args); i++ {
		require.True(t, seen[i], "missing $%d in %s", i, q.Text)
	}
}

func readRows(t *testing.T, body []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

// abortingWriter panics the way a wrapper does when it gives up on the
// response.
type abortingWriter struct {
	*httptest.ResponseRecorder
}

func (abortingWriter) Write([]byte) (int, error) { panic(http.ErrAbortHandler) }
