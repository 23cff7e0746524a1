// Package timex holds time helpers shared by the server and the CLI.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Duration decodes from either a Go duration string ("90s", "1m") or integer
// nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	}
	return errors.New("invalid duration")
}

// StampLayout is the fixed-width UTC layout used for stored timestamps.
// Lexical order of formatted values equals chronological order.
const StampLayout = "2006-01-02T15:04:05.000000Z"

// Stamp formats t with StampLayout.
func Stamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// DateLayout is the layout of calendar dates on the wire and in storage.
const DateLayout = "2006-01-02"
