package dererr

import (
	"errors"
	"testing"
)

func TestNewUnwrapsToKind(t *testing.T) {
	err := New("pkg.Op", ErrInvalidValue)
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("errors.Is(New(...), ErrInvalidValue) = false, want true")
	}
	if errors.Is(err, ErrNoData) {
		t.Error("errors.Is(New(...), ErrNoData) = true, want false")
	}
}

func TestAtIncludesOffsetInMessage(t *testing.T) {
	err := At("pkg.Op", 42, ErrBerError)
	want := "pkg.Op: invalid BER encoding at offset 42"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewOmitsOffsetInMessage(t *testing.T) {
	err := New("pkg.Op", ErrBerError)
	want := "pkg.Op: invalid BER encoding"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOfUnwrapsError(t *testing.T) {
	err := New("pkg.Op", ErrInvalidObject)
	if got := KindOf(err); got != ErrInvalidObject {
		t.Errorf("KindOf() = %v, want %v", got, ErrInvalidObject)
	}
}

func TestKindOfPassesThroughForeignErrors(t *testing.T) {
	foreign := errors.New("boom")
	if got := KindOf(foreign); got != foreign {
		t.Errorf("KindOf() = %v, want the original error unchanged", got)
	}
}

func TestErrorAsRecoversConcreteType(t *testing.T) {
	wrapped := At("pkg.Op", 7, ErrObjectTooShort)
	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As() = false, want true")
	}
	if target.Offset != 7 || target.Op != "pkg.Op" {
		t.Errorf("target = %+v, want Offset=7 Op=pkg.Op", target)
	}
}
