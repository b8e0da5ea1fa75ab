package ber

import "github.com/corvid-systems/dermsg/pkg/berio"

// captureReader wraps a berio.Reader and records every byte it yields into
// an in-memory image, so the decoded node tree can reference its content by
// offset into one contiguous buffer (spec's "Image" data model). A byte
// pushed back via Unread is trimmed from the recorded image; it is
// re-captured the next time it is actually read.
type captureReader struct {
	src  berio.Reader
	buf  []byte
	base int64 // src.Tell() when capture began; image offset 0
}

func newCaptureReader(src berio.Reader) *captureReader {
	return &captureReader{src: src, base: src.Tell()}
}

func (c *captureReader) Read(n int) ([]byte, error) {
	b, err := c.src.Read(n)
	c.buf = append(c.buf, b...)
	return b, err
}

func (c *captureReader) Unread(p []byte) error {
	if err := c.src.Unread(p); err != nil {
		return err
	}
	if len(p) <= len(c.buf) {
		c.buf = c.buf[:len(c.buf)-len(p)]
	}
	return nil
}

func (c *captureReader) Tell() int64 { return c.src.Tell() - c.base }

func (c *captureReader) image() []byte { return c.buf }

// recorder wraps a berio.Reader and records the bytes consumed through it,
// without touching the wrapped reader's own Unread. It is used to peek one
// TLV header: the header is read through a recorder, then the recorded raw
// bytes are unread on the underlying captureReader if the caller decides not
// to consume this header after all.
type recorder struct {
	r   berio.Reader
	buf []byte
}

func (r *recorder) Read(n int) ([]byte, error) {
	b, err := r.r.Read(n)
	r.buf = append(r.buf, b...)
	return b, err
}

func (r *recorder) Unread(p []byte) error { return r.r.Unread(p) }
func (r *recorder) Tell() int64           { return r.r.Tell() }
