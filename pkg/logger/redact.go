package logger

import (
	"bytes"
	"encoding/json"
	"io"
)

const redacted = "[REDACTED]"

// RedactingWriter rewrites JSON log events so that the configured fields
// never reach the underlying writer.
type RedactingWriter struct {
	out  io.Writer
	keys map[string]struct{}
	// needles are the quoted key forms used to skip events without a match.
	needles [][]byte
}

// NewRedactingWriter wraps out. Without keys it returns out unchanged.
func NewRedactingWriter(out io.Writer, keys ...string) io.Writer {
	if len(keys) == 0 {
		return out
	}
	w := &RedactingWriter{out: out, keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		w.keys[k] = struct{}{}
		w.needles = append(w.needles, []byte(`"`+k+`":`))
	}
	return w
}

// Write implements io.Writer. zerolog hands over exactly one event per call.
func (w *RedactingWriter) Write(p []byte) (int, error) {
	if !w.mentionsKey(p) {
		return w.out.Write(p)
	}

	var event map[string]json.RawMessage
	if err := json.Unmarshal(p, &event); err != nil {
		// Not a JSON object; drop the event rather than risk leaking it.
		return len(p), nil
	}
	for k := range event {
		if _, ok := w.keys[k]; ok {
			event[k] = json.RawMessage(`"` + redacted + `"`)
		}
	}
	clean, err := json.Marshal(event)
	if err != nil {
		return len(p), nil
	}
	clean = append(clean, '\n')
	if _, err := w.out.Write(clean); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *RedactingWriter) mentionsKey(p []byte) bool {
	for _, n := range w.needles {
		if bytes.Contains(p, n) {
			return true
		}
	}
	return false
}
