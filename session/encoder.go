package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordFormatVersion = 1

// Encode serializes a record to its compact binary storage form: version
// byte, length-prefixed strings, big-endian timestamps.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersion)

	if err := writeString(&buf, r.ID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, r.UserID); err != nil {
		return nil, err
	}

	var flags byte
	if r.Valid {
		flags |= 1
	}
	if r.Error != nil {
		flags |= 2
	}
	buf.WriteByte(flags)

	if r.Error != nil {
		if err := writeString(&buf, r.Error.Cause); err != nil {
			return nil, err
		}
		if err := writeString(&buf, r.Error.Severity); err != nil {
			return nil, err
		}
	}

	for _, ts := range []int64{r.Created, r.Expires, r.Absolute} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses the binary storage form produced by Encode.
func Decode(data []byte) (*Record, error) {
	rd := bytes.NewReader(data)

	version, err := rd.ReadByte()
	if err != nil {
		return nil, ErrSessionCorrupt
	}
	if version != recordFormatVersion {
		return nil, ErrSessionCorrupt
	}

	var r Record
	if r.ID, err = readString(rd); err != nil {
		return nil, ErrSessionCorrupt
	}
	if r.UserID, err = readString(rd); err != nil {
		return nil, ErrSessionCorrupt
	}

	flags, err := rd.ReadByte()
	if err != nil {
		return nil, ErrSessionCorrupt
	}
	r.Valid = flags&1 != 0

	if flags&2 != 0 {
		var recErr RecordError
		if recErr.Cause, err = readString(rd); err != nil {
			return nil, ErrSessionCorrupt
		}
		if recErr.Severity, err = readString(rd); err != nil {
			return nil, ErrSessionCorrupt
		}
		r.Error = &recErr
	}

	for _, dst := range []*int64{&r.Created, &r.Expires, &r.Absolute} {
		if err := binary.Read(rd, binary.BigEndian, dst); err != nil {
			return nil, ErrSessionCorrupt
		}
	}

	if rd.Len() != 0 {
		return nil, ErrSessionCorrupt
	}
	return &r, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return errors.New("session field too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(rd *bytes.Reader) (string, error) {
	length, err := rd.ReadByte()
	if err != nil {
		return "", err
	}
	out := make([]byte, int(length))
	if _, err := io.ReadFull(rd, out); err != nil {
		return "", err
	}
	return string(out), nil
}
