package session

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRecord(t *testing.T) {
	cases := map[string]*Record{
		"plain": {
			ID: "sid-1", UserID: "u-1", Valid: true,
			Created: 100, Expires: 200, Absolute: 300,
		},
		"with error": {
			ID: "sid-2", UserID: "u-2", Valid: false,
			Error:   &RecordError{Cause: "backend down", Severity: SeverityFatal},
			Created: 1, Expires: 2, Absolute: 3,
		},
		"negative timestamps": {
			ID: "sid-3", UserID: "u-3", Valid: true,
			Created: -1, Expires: -2, Absolute: -3,
		},
	}

	for name, rec := range cases {
		data, err := Encode(rec)
		if err != nil {
			t.Fatalf("%s: Encode failed: %v", name, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("%s: Decode failed: %v", name, err)
		}
		if got.ID != rec.ID || got.UserID != rec.UserID || got.Valid != rec.Valid {
			t.Fatalf("%s: identity fields mismatch: %+v", name, got)
		}
		if got.Created != rec.Created || got.Expires != rec.Expires || got.Absolute != rec.Absolute {
			t.Fatalf("%s: timestamp mismatch: %+v", name, got)
		}
		if (got.Error == nil) != (rec.Error == nil) {
			t.Fatalf("%s: error presence mismatch", name)
		}
		if rec.Error != nil && (got.Error.Cause != rec.Error.Cause || got.Error.Severity != rec.Error.Severity) {
			t.Fatalf("%s: error fields mismatch: %+v", name, got.Error)
		}
	}
}

func TestEncodeRejectsOversizedField(t *testing.T) {
	rec := &Record{ID: strings.Repeat("x", 256), UserID: "u-1"}
	if _, err := Encode(rec); err == nil {
		t.Fatal("expected error for oversized id")
	}
}

func TestDecodeDefects(t *testing.T) {
	good, err := Encode(&Record{ID: "sid", UserID: "uid", Valid: true, Created: 1, Expires: 2, Absolute: 3})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	cases := map[string][]byte{
		"empty":          {},
		"bad version":    append([]byte{99}, good[1:]...),
		"truncated":      good[:len(good)-5],
		"trailing bytes": append(append([]byte{}, good...), 0x00),
	}
	for name, data := range cases {
		if _, err := Decode(data); !errors.Is(err, ErrSessionCorrupt) {
			t.Errorf("%s: expected ErrSessionCorrupt, got %v", name, err)
		}
	}
}
