package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"unicode"

	"github.com/fxamacker/cbor/v2"

	"github.com/corvid-systems/dermsg/pkg/keyinfo"
	"github.com/corvid-systems/dermsg/pkg/sexp"
)

var outputFormat string

// sexpToJSON turns a canonical s-expression into a plain Go value that
// encoding/json and cbor.Marshal can both render: a list becomes a slice,
// an atom becomes a string when its bytes are printable ASCII and a
// "0x"-prefixed hex string otherwise (the bit patterns keyinfo emits for
// MPIs and OIDs rarely round-trip as text).
func sexpToJSON(e sexp.Expr) any {
	if e.IsAtom() {
		if isPrintableASCII(e.Value) {
			return string(e.Value)
		}
		return "0x" + hex.EncodeToString(e.Value)
	}
	out := make([]any, len(e.Items))
	for i, it := range e.Items {
		out[i] = sexpToJSON(it)
	}
	return out
}

// sexpFromBytes wraps a raw byte slice (a serial number, a key identifier)
// as an atom so it goes through the same hex-or-text rendering sexpToJSON
// applies to decoded key/signature material.
func sexpFromBytes(b []byte) sexp.Expr { return sexp.Atom(b) }

func isPrintableASCII(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	for _, r := range string(b) {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// writeValue marshals v per --output and writes it to w: "json" is
// printed directly, "cbor" is hex-dumped since a terminal isn't a sensible
// destination for raw binary.
func writeValue(w io.Writer, v any) error {
	switch outputFormat {
	case "cbor":
		data, err := cbor.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, hex.EncodeToString(data))
		return err
	case "json", "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return fmt.Errorf("unknown --output format %q (want json or cbor)", outputFormat)
	}
}

// keyinfoOptions builds the pkg/keyinfo.Options a subcommand should use,
// wiring cfg.WarnLog into its Warn logger.
func keyinfoOptions(cfg Config) (*keyinfo.Options, error) {
	if cfg.WarnLog == "" {
		return &keyinfo.Options{}, nil
	}
	f, err := os.OpenFile(cfg.WarnLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &keyinfo.Options{Warn: log.New(f, "dercms: ", log.LstdFlags)}, nil
}
