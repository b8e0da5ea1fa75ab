// Package berio provides the streaming byte source the BER decoder drives.
// A Reader is cooperative with a single decoder: it must support pushing
// back at least one full TLV header so the decoder can peek a tag before
// committing to consuming it (used by pkg/cms when probing for an optional
// [0]/[1] IMPLICIT element).
package berio

import (
	"io"

	"github.com/corvid-systems/dermsg/pkg/dererr"
)

// Reader is the byte source a decoder reads from. Read may block until bytes
// are available or the source is exhausted; Unread pushes bytes back onto
// the front of the stream for the next Read to return; Tell reports the
// number of bytes consumed so far (net of any pending Unread).
type Reader interface {
	Read(n int) ([]byte, error)
	Unread(p []byte) error
	Tell() int64
}

// maxPushback bounds how much Unread must support: one BER header as
// tlv.ReadHeader accepts it, at most 7 (tag) + 9 (length) = 16 bytes.
const maxPushback = 16

// bytesReader implements Reader over an in-memory buffer.
type bytesReader struct {
	buf    []byte
	pos    int
	pushed []byte
}

// NewBytesReader returns a Reader over a fully-buffered byte slice.
func NewBytesReader(b []byte) Reader {
	return &bytesReader{buf: b}
}

func (r *bytesReader) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, dererr.New("berio.Read", dererr.ErrInvalidValue)
	}
	out := make([]byte, 0, n)
	for n > 0 && len(r.pushed) > 0 {
		take := min(n, len(r.pushed))
		out = append(out, r.pushed[:take]...)
		r.pushed = r.pushed[take:]
		n -= take
	}
	if n > 0 {
		avail := len(r.buf) - r.pos
		if avail == 0 {
			if len(out) == 0 {
				return nil, io.EOF
			}
			return out, nil
		}
		take := min(n, avail)
		out = append(out, r.buf[r.pos:r.pos+take]...)
		r.pos += take
	}
	return out, nil
}

func (r *bytesReader) Unread(p []byte) error {
	if len(p)+len(r.pushed) > maxPushback {
		return dererr.New("berio.Unread", dererr.ErrInvalidValue)
	}
	r.pushed = append(append([]byte{}, p...), r.pushed...)
	return nil
}

func (r *bytesReader) Tell() int64 {
	return int64(r.pos - len(r.pushed))
}

// streamReader implements Reader over an io.Reader, for callers that want to
// drive the CMS parser directly off a network connection or file handle
// without pre-buffering the whole message.
type streamReader struct {
	src    io.Reader
	pos    int64
	pushed []byte
}

// NewStreamReader returns a Reader over an arbitrary io.Reader.
func NewStreamReader(src io.Reader) Reader {
	return &streamReader{src: src}
}

func (r *streamReader) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, dererr.New("berio.Read", dererr.ErrInvalidValue)
	}
	out := make([]byte, 0, n)
	for n > 0 && len(r.pushed) > 0 {
		take := min(n, len(r.pushed))
		out = append(out, r.pushed[:take]...)
		r.pushed = r.pushed[take:]
		n -= take
	}
	if n > 0 {
		buf := make([]byte, n)
		read, err := io.ReadFull(r.src, buf)
		out = append(out, buf[:read]...)
		r.pos += int64(read)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return out, dererr.New("berio.Read", dererr.ErrReadError)
		}
		if read == 0 && len(out) == 0 {
			return nil, io.EOF
		}
	}
	return out, nil
}

func (r *streamReader) Unread(p []byte) error {
	if len(p)+len(r.pushed) > maxPushback {
		return dererr.New("berio.Unread", dererr.ErrInvalidValue)
	}
	r.pushed = append(append([]byte{}, p...), r.pushed...)
	return nil
}

func (r *streamReader) Tell() int64 {
	return r.pos - int64(len(r.pushed))
}
