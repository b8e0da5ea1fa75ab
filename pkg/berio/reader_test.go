package berio

import (
	"bytes"
	"io"
	"testing"
)

func TestBytesReaderReadAndTell(t *testing.T) {
	r := NewBytesReader([]byte{1, 2, 3, 4, 5})
	got, err := r.Read(3)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Read() = %v, want [1 2 3]", got)
	}
	if r.Tell() != 3 {
		t.Errorf("Tell() = %d, want 3", r.Tell())
	}
	got, err = r.Read(2)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, []byte{4, 5}) {
		t.Errorf("Read() = %v, want [4 5]", got)
	}
}

func TestBytesReaderEOF(t *testing.T) {
	r := NewBytesReader([]byte{1})
	if _, err := r.Read(1); err != nil {
		t.Fatalf("first Read() error = %v", err)
	}
	_, err := r.Read(1)
	if err != io.EOF {
		t.Errorf("Read() at end error = %v, want io.EOF", err)
	}
}

func TestBytesReaderUnread(t *testing.T) {
	r := NewBytesReader([]byte{1, 2, 3, 4})
	first, err := r.Read(2)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := r.Unread(first); err != nil {
		t.Fatalf("Unread() error = %v", err)
	}
	if r.Tell() != 0 {
		t.Errorf("Tell() after Unread() = %d, want 0", r.Tell())
	}
	again, err := r.Read(4)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(again, []byte{1, 2, 3, 4}) {
		t.Errorf("Read() after Unread() = %v, want [1 2 3 4]", again)
	}
}

func TestBytesReaderUnreadBeyondPushbackLimit(t *testing.T) {
	r := NewBytesReader(make([]byte, 32))
	big := make([]byte, 17)
	if err := r.Unread(big); err == nil {
		t.Error("Unread() of an over-limit slice should have errored")
	}
}

func TestStreamReaderReadAndTell(t *testing.T) {
	r := NewStreamReader(bytes.NewReader([]byte{10, 20, 30}))
	got, err := r.Read(2)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, []byte{10, 20}) {
		t.Errorf("Read() = %v, want [10 20]", got)
	}
	if r.Tell() != 2 {
		t.Errorf("Tell() = %d, want 2", r.Tell())
	}
}

func TestStreamReaderUnread(t *testing.T) {
	r := NewStreamReader(bytes.NewReader([]byte{10, 20, 30}))
	first, err := r.Read(1)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := r.Unread(first); err != nil {
		t.Fatalf("Unread() error = %v", err)
	}
	if r.Tell() != 0 {
		t.Errorf("Tell() after Unread() = %d, want 0", r.Tell())
	}
	all, err := r.Read(3)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(all, []byte{10, 20, 30}) {
		t.Errorf("Read() after Unread() = %v, want [10 20 30]", all)
	}
}

func TestStreamReaderShortRead(t *testing.T) {
	r := NewStreamReader(bytes.NewReader([]byte{1, 2}))
	got, err := r.Read(5)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("Read() = %v, want [1 2]", got)
	}
}
