// Package httpsync is the HTTP binding of the sync-target contract (spec
// §4.7): URL shape BASE/<db>/sync-from/<source_uid>, GET/PUT/POST
// semantics, and the line-delimited JSON stream framing used by POST's
// body and response. No direct teacher analog (the teacher gossips over
// raw TCP via internal/network); grounded instead on eniz1806-VaultS3's
// internal/server + internal/s3 style: a net/http server with a manual
// path-prefix dispatcher rather than a third-party router.
package httpsync

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/kazade/syncdb/internal/document"
)

// streamError is the {"error": "..."} object a mid-stream failure is
// represented as (spec §4.7 framing rules).
type streamError struct {
	Error string `json:"error"`
}

// StreamWriter emits the line-delimited-JSON-in-brackets framing spec
// §4.7 defines: "[" + "\r\n" + elem0 + ("," + "\r\n" + elem_i)... +
// "\r\n" + "]" — verified against the worked example in spec §8 scenario
// 6 (`[\r\n{"new_generation":1,...}\r\n]` for a single-element stream).
type StreamWriter struct {
	w       *bufio.Writer
	pending []byte
	err     error
}

// NewStreamWriter opens the array on w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	bw := bufio.NewWriter(w)
	bw.WriteString("[")
	return &StreamWriter{w: bw}
}

// Write encodes v as the next element of the stream.
func (sw *StreamWriter) Write(v interface{}) error {
	if sw.err != nil {
		return sw.err
	}
	b, err := json.Marshal(v)
	if err != nil {
		sw.err = err
		return err
	}
	sw.flushPending(true)
	sw.pending = b
	return nil
}

func (sw *StreamWriter) flushPending(more bool) {
	if sw.pending == nil {
		return
	}
	sw.w.WriteString("\r\n")
	sw.w.Write(sw.pending)
	if more {
		sw.w.WriteString(",")
	}
	sw.pending = nil
}

// Close emits the final element (if any pending) and the closing "\r\n]".
func (sw *StreamWriter) Close() error {
	if sw.err != nil {
		return sw.err
	}
	sw.flushPending(false)
	sw.w.WriteString("\r\n]")
	return sw.w.Flush()
}

// WriteErrorAndClose appends a terminal {"error": msg} element and closes
// the stream (spec §4.7 "a mid-stream error ... is emitted as a JSON
// object {"error": ...} appended to the already-opened array").
func (sw *StreamWriter) WriteErrorAndClose(msg string) error {
	sw.flushPending(true)
	b, _ := json.Marshal(streamError{Error: msg})
	sw.pending = b
	return sw.Close()
}

// StreamReader parses the framing StreamWriter produces, token-by-token
// via encoding/json.Decoder (in the spirit of the teacher's bufio-based
// connection reader in internal/network/network_manager.go). Any
// malformed framing — missing/extra commas, missing brackets, a
// truncated stream — surfaces as document.KindBrokenSyncStream, since
// such input fails to decode as the valid JSON array the framing rules
// always produce.
type StreamReader struct {
	dec *json.Decoder
}

// NewStreamReader wraps r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{dec: json.NewDecoder(r)}
}

// Open consumes the opening "[".
func (sr *StreamReader) Open() error {
	tok, err := sr.dec.Token()
	if err != nil {
		return document.Wrap(document.KindBrokenSyncStream, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return document.Newf(document.KindBrokenSyncStream, "stream did not open with '['")
	}
	return nil
}

// More reports whether another element remains before the closing "]".
func (sr *StreamReader) More() bool {
	return sr.dec.More()
}

// Next decodes the next element into v. If the element is a mid-stream
// error object, it returns KindUnavailable (for {"error":"unavailable"})
// or KindBrokenSyncStream (any other error value) instead of decoding
// into v.
func (sr *StreamReader) Next(v interface{}) error {
	var raw json.RawMessage
	if err := sr.dec.Decode(&raw); err != nil {
		return document.Wrap(document.KindBrokenSyncStream, err)
	}
	var probe streamError
	if err := json.Unmarshal(raw, &probe); err == nil && probe.Error != "" {
		if probe.Error == "unavailable" {
			return document.Newf(document.KindUnavailable, "sync target unavailable")
		}
		return document.Newf(document.KindBrokenSyncStream, "stream error: %s", probe.Error)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return document.Wrap(document.KindBrokenSyncStream, err)
	}
	return nil
}

// Close consumes the closing "]".
func (sr *StreamReader) Close() error {
	tok, err := sr.dec.Token()
	if err != nil {
		return document.Wrap(document.KindBrokenSyncStream, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != ']' {
		return document.Newf(document.KindBrokenSyncStream, "stream did not close with ']'")
	}
	return nil
}
