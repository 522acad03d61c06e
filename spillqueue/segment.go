// Package spillqueue implements C3, the durable on-disk overflow queue the
// bridge client spills into when the hub connection is down. Records are
// framed with a 4-byte big-endian length prefix followed by a JSON
// payload.
package spillqueue

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"os"
)

// ErrRecordTooLarge guards against corrupt or hostile length prefixes.
var ErrRecordTooLarge = errors.New("spillqueue: record too large")

// maxRecordBytes bounds any single record read from a segment file.
const maxRecordBytes = 16 << 20

// writeRecord appends a length-prefixed JSON record to w.
func writeRecord(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// readRecord reads one length-prefixed JSON record from r.
func readRecord(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if n < 0 || n > maxRecordBytes {
		return nil, ErrRecordTooLarge
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// scanSegment reads every complete record in path, truncating a trailing
// partial record left by a crash mid-append. It returns the decoded
// envelopes for complete records in file order.
func scanSegment(path string, decode func([]byte) (envelope, error)) ([]envelope, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []envelope
	var offset int64
	for {
		var hdr [4]byte
		n, err := io.ReadFull(f, hdr[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF || n < 4 {
			break // partial length prefix: truncate below
		}
		if err != nil {
			return nil, err
		}
		payloadLen := int(binary.BigEndian.Uint32(hdr[:]))
		if payloadLen < 0 || payloadLen > maxRecordBytes {
			break // corrupt length prefix: truncate the rest away
		}
		payload := make([]byte, payloadLen)
		n, err = io.ReadFull(f, payload)
		if err == io.EOF || err == io.ErrUnexpectedEOF || n < payloadLen {
			break // partial payload: truncate below
		}
		if err != nil {
			return nil, err
		}
		env, err := decode(payload)
		if err != nil {
			break // corrupt payload: stop trusting the rest of the segment
		}
		out = append(out, env)
		offset += 4 + int64(payloadLen)
	}

	if cur, err := f.Seek(0, io.SeekCurrent); err == nil && cur != offset {
		if err := f.Truncate(offset); err != nil {
			return nil, err
		}
	}
	return out, nil
}
