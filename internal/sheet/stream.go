// Package sheet writes single-worksheet xlsx workbooks row by row straight
// into an io.Writer. Rows are serialized and compressed as they arrive, so
// memory use does not grow with the number of rows.
package sheet

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"go-pricewatch/internal/errors"
)

// MaxCellChars is the longest text a spreadsheet cell may hold.
const MaxCellChars = 32767

// TimeLayout is how timestamps are rendered into cells.
const TimeLayout = "2006-01-02 15:04:05"

var (
	// ErrClosed is returned by calls made after Close or Abort.
	ErrClosed = errors.New("sheet writer closed")
	// ErrCellValue is returned for values that cannot be stored in a cell.
	ErrCellValue = errors.New("unsupported cell value")
)

const sheetPart = "xl/worksheets/sheet1.xml"

// StreamWriter emits one worksheet. Calls must come from one goroutine.
type StreamWriter struct {
	zw    *zip.Writer
	fw    *flate.Writer
	sheet io.Writer
	buf   bytes.Buffer
	row   int
	err   error
	done  bool
}

// NewStreamWriter writes the fixed package parts to w and opens the
// worksheet. widths sets the column widths in character units; zero or
// negative widths keep the default.
func NewStreamWriter(w io.Writer, sheetName string, widths []int) (*StreamWriter, error) {
	sw := &StreamWriter{zw: zip.NewWriter(w)}
	sw.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		fw, err := flate.NewWriter(out, flate.DefaultCompression)
		sw.fw = fw
		return fw, err
	})

	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"xl/workbook.xml", workbookXML(sheetName)},
		{"xl/_rels/workbook.xml.rels", workbookRelsXML},
		{"xl/styles.xml", stylesXML},
	}
	for _, p := range parts {
		f, err := sw.zw.Create(p.name)
		if err != nil {
			return nil, errors.Wrapf(err, "create %s", p.name)
		}
		if _, err := io.WriteString(f, p.body); err != nil {
			return nil, errors.Wrapf(err, "write %s", p.name)
		}
	}

	sheet, err := sw.zw.Create(sheetPart)
	if err != nil {
		return nil, errors.Wrap(err, "create worksheet")
	}
	sw.sheet = sheet

	sw.buf.WriteString(xml.Header)
	sw.buf.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`)
	if cols := colsXML(widths); cols != "" {
		sw.buf.WriteString(cols)
	}
	sw.buf.WriteString(`<sheetData>`)
	if err := sw.drain(); err != nil {
		return nil, err
	}
	return sw, nil
}

// Rows is the number of rows written so far.
func (sw *StreamWriter) Rows() int { return sw.row }

// WriteRow encodes values as the next row and commits it to the compressed
// worksheet stream. bold selects the bold cell style. An encoding error
// leaves the writer usable; a write error is returned by every later call.
func (sw *StreamWriter) WriteRow(values []any, bold bool) error {
	if err := sw.usable(); err != nil {
		return err
	}

	r := sw.row + 1
	sw.buf.Reset()
	sw.buf.WriteString(`<row r="`)
	sw.buf.WriteString(strconv.Itoa(r))
	sw.buf.WriteString(`">`)
	for i, v := range values {
		if err := sw.writeCell(i+1, r, v, bold); err != nil {
			sw.buf.Reset()
			return err
		}
	}
	sw.buf.WriteString(`</row>`)

	if err := sw.drain(); err != nil {
		return err
	}
	sw.row = r
	return nil
}

// Flush pushes everything compressed so far through to the underlying
// writer.
func (sw *StreamWriter) Flush() error {
	if err := sw.usable(); err != nil {
		return err
	}
	if sw.fw != nil {
		if err := sw.fw.Flush(); err != nil {
			return sw.fail(errors.Wrap(err, "flush worksheet"))
		}
	}
	if err := sw.zw.Flush(); err != nil {
		return sw.fail(errors.Wrap(err, "flush package"))
	}
	return nil
}

// Close writes the worksheet trailer and the package directory. The
// workbook is complete only after Close returns nil.
func (sw *StreamWriter) Close() error {
	if err := sw.usable(); err != nil {
		return err
	}
	sw.buf.Reset()
	sw.buf.WriteString(`</sheetData></worksheet>`)
	if err := sw.drain(); err != nil {
		return err
	}
	sw.done = true
	if err := sw.zw.Close(); err != nil {
		sw.err = errors.Wrap(err, "finish package")
		return sw.err
	}
	return nil
}

// Abort stops the writer without emitting trailing bytes, leaving the
// output truncated. It is safe to call more than once and after Close.
func (sw *StreamWriter) Abort() {
	sw.done = true
	sw.buf.Reset()
}

func (sw *StreamWriter) usable() error {
	if sw.err != nil {
		return sw.err
	}
	if sw.done {
		return ErrClosed
	}
	return nil
}

func (sw *StreamWriter) fail(err error) error {
	sw.err = err
	return err
}

func (sw *StreamWriter) drain() error {
	_, err := sw.sheet.Write(sw.buf.Bytes())
	sw.buf.Reset()
	if err != nil {
		return sw.fail(errors.Wrap(err, "write worksheet"))
	}
	return nil
}

func (sw *StreamWriter) writeCell(col, row int, v any, bold bool) error {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.Wrapf(err, "cell %d,%d", col, row)
	}
	v, err = Normalize(v)
	if err != nil {
		return errors.Wrapf(err, "cell %s", ref)
	}

	style := ""
	if bold {
		style = ` s="1"`
	}

	switch val := v.(type) {
	case nil:
	case string:
		sw.buf.WriteString(`<c r="` + ref + `"` + style + ` t="inlineStr"><is><t xml:space="preserve">`)
		if err := xml.EscapeText(&sw.buf, []byte(val)); err != nil {
			return errors.Wrapf(err, "escape cell %s", ref)
		}
		sw.buf.WriteString(`</t></is></c>`)
	case bool:
		b := "0"
		if val {
			b = "1"
		}
		sw.buf.WriteString(`<c r="` + ref + `"` + style + ` t="b"><v>` + b + `</v></c>`)
	case int64:
		sw.buf.WriteString(`<c r="` + ref + `"` + style + `><v>` + strconv.FormatInt(val, 10) + `</v></c>`)
	case uint64:
		sw.buf.WriteString(`<c r="` + ref + `"` + style + `><v>` + strconv.FormatUint(val, 10) + `</v></c>`)
	case float64:
		sw.buf.WriteString(`<c r="` + ref + `"` + style + `><v>` + strconv.FormatFloat(val, 'f', -1, 64) + `</v></c>`)
	}
	return nil
}

// Normalize maps a database value onto the small set of cell types: nil,
// string, bool, int64, uint64 or float64. Byte slices become text and
// timestamps are rendered with TimeLayout. Text longer than MaxCellChars,
// non-finite numbers and any other type fail with ErrCellValue.
func Normalize(v any) (any, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case string:
		return checkText(n)
	case []byte:
		return checkText(string(n))
	case time.Time:
		return n.Format(TimeLayout), nil
	case bool:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case float32:
		return checkFloat(float64(n))
	case float64:
		return checkFloat(n)
	}
	return nil, errors.Wrapf(ErrCellValue, "%T", v)
}

func checkFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.Wrapf(ErrCellValue, "non-finite number %v", f)
	}
	return f, nil
}

func checkText(s string) (any, error) {
	if n := utf8.RuneCountInString(s); n > MaxCellChars {
		return nil, errors.Wrapf(ErrCellValue, "text of %d characters exceeds %d", n, MaxCellChars)
	}
	return s, nil
}

func colsXML(widths []int) string {
	var b bytes.Buffer
	for i, w := range widths {
		if w <= 0 {
			continue
		}
		idx := strconv.Itoa(i + 1)
		b.WriteString(`<col min="` + idx + `" max="` + idx + `" width="` + strconv.Itoa(w) + `" customWidth="1"/>`)
	}
	if b.Len() == 0 {
		return ""
	}
	return "<cols>" + b.String() + "</cols>"
}

func workbookXML(sheetName string) string {
	var name bytes.Buffer
	_ = xml.EscapeText(&name, []byte(sheetName))
	return xml.Header +
		`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<sheets><sheet name="` + name.String() + `" sheetId="1" r:id="rId1"/></sheets></workbook>`
}

const contentTypesXML = xml.Header +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>` +
	`<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>` +
	`<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>` +
	`</Types>`

const rootRelsXML = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>` +
	`</Relationships>`

const workbookRelsXML = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

// Style 0 is the default cell format, style 1 uses the bold font.
const stylesXML = xml.Header +
	`<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
	`<fonts count="2"><font><sz val="11"/><name val="Calibri"/></font><font><b/><sz val="11"/><name val="Calibri"/></font></fonts>` +
	`<fills count="2"><fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill></fills>` +
	`<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>` +
	`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>` +
	`<cellXfs count="2"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/>` +
	`<xf numFmtId="0" fontId="1" fillId="0" borderId="0" xfId="0" applyFont="1"/></cellXfs>` +
	`<cellStyles count="1"><cellStyle name="Normal" xfId="0" builtinId="0"/></cellStyles>` +
	`</styleSheet>`
