package export

import "go-pricewatch/internal/errors"

// Error kinds. Exporter errors carry one or more of these marks; test for
// them with errors.Is or the Is* helpers. Errors caused by the request
// itself also carry errors.ErrInvalidRequest.
var (
	// ErrConfiguration is a missing or unknown export type, or an invalid
	// set of definitions at startup.
	ErrConfiguration = errors.New("export configuration error")
	// ErrInvalidFilter is a filter value that cannot be coerced to the
	// filter's type.
	ErrInvalidFilter = errors.New("invalid export filter")
	// ErrQuery is a failure reported by the data store.
	ErrQuery = errors.New("export query failed")
	// ErrWrite is a failure to deliver output. A cursor failure in the
	// middle of a stream carries this mark too, because the output is
	// already truncated.
	ErrWrite = errors.New("export write failed")
	// ErrEncoding is a row value that cannot be stored in a cell.
	ErrEncoding = errors.New("export encoding failed")
)

func mark(err error, kind error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), kind)
}

// IsQueryError reports whether err carries the query mark.
func IsQueryError(err error) bool { return errors.Is(err, ErrQuery) }

// IsWriteError reports whether err carries the write mark.
func IsWriteError(err error) bool { return errors.Is(err, ErrWrite) }

// IsEncodingError reports whether err carries the encoding mark.
func IsEncodingError(err error) bool { return errors.Is(err, ErrEncoding) }
