// Package dererr defines the error-kind sentinels shared by dermsg's DER/BER
// codec, key-information codec, certificate facade, and CMS parser.
//
// Structural errors cross package boundaries by design: a malformed tag
// surfaced by pkg/ber must still be recognisable when pkg/cms rewrites it at
// the outermost ContentInfo boundary. Centralizing the sentinels here lets
// every package wrap one of these with errors.Is/errors.As instead of each
// defining its own incompatible copy.
package dererr

import (
	"errors"
	"strconv"
)

// Error kinds. Each corresponds to one of the failure categories a caller
// needs to distinguish; none of them leak a Go type name.
var (
	ErrInvalidValue         = errors.New("invalid value")
	ErrOutOfCore            = errors.New("out of memory")
	ErrConflict             = errors.New("conflicting values")
	ErrNoData               = errors.New("no data")
	ErrNoValue              = errors.New("no value")
	ErrBerError             = errors.New("invalid BER encoding")
	ErrNotDerEncoded        = errors.New("not DER encoded")
	ErrUnexpectedTag        = errors.New("unexpected tag")
	ErrInvalidKeyInfo       = errors.New("invalid key info")
	ErrInvalidObject        = errors.New("invalid object")
	ErrInvalidSexp          = errors.New("invalid s-expression")
	ErrUnknownSexp          = errors.New("unknown s-expression")
	ErrUnknownAlgorithm     = errors.New("unknown algorithm")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrObjectTooShort       = errors.New("object too short")
	ErrObjectTooLarge       = errors.New("object too large")
	ErrReadError            = errors.New("read error")
	ErrInvalidCmsObject     = errors.New("invalid CMS object")
	ErrNoCmsObject          = errors.New("no CMS object")
	ErrUnsupportedCmsObject = errors.New("unsupported CMS object")
	ErrUnsupportedCmsVer    = errors.New("unsupported CMS version")
	ErrUnsupportedEncoding  = errors.New("unsupported encoding")
	ErrGeneral              = errors.New("general error")
)

// Error wraps an error kind with the operation that produced it and, where
// known, the byte offset in the input at which the failure was detected.
// It supports errors.Is and errors.As through Unwrap.
type Error struct {
	Op     string // e.g. "ber.Decode", "keyinfo.ParseAlgorithmIdentifier"
	Offset int64  // -1 if not applicable
	Err    error  // one of the sentinels above, or a wrapped lower-level error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return e.Op + ": " + e.Err.Error() + " at offset " + strconv.FormatInt(e.Offset, 10)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no offset information.
func New(op string, kind error) *Error {
	return &Error{Op: op, Offset: -1, Err: kind}
}

// At creates an Error annotated with the byte offset at which it occurred.
func At(op string, offset int64, kind error) *Error {
	return &Error{Op: op, Offset: offset, Err: kind}
}

// KindOf unwraps err down to the sentinel kind it carries, for callers that
// need to switch on it directly (e.g. rewriting a BER-layer failure into
// NoCmsObject at the CMS outer boundary). Returns err itself if it isn't one
// of this package's *Error values.
func KindOf(err error) error {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Err
	}
	return err
}
