package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/snackx/internal/shared"
)

// FlexID is an identifier that may arrive as a JSON number or a numeric string.
type FlexID int64

// UnmarshalJSON accepts 42, 42.0, "42" and null. Null leaves the value at zero.
func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: id %s", shared.ErrInvalidInput, raw)
		}
		raw = s
	}

	id, err := parseID(raw)
	if err != nil {
		return err
	}
	*f = FlexID(id)
	return nil
}

// ParseSnackID coerces a user- or server-supplied identifier into the canonical numeric id.
func ParseSnackID(s string) (int64, error) {
	id, err := parseID(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: snack id must be positive, got %q", shared.ErrInvalidArgument, s)
	}
	return id, nil
}

func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, nil
	}

	// Some payloads encode integral ids as floats.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("%w: not a numeric id: %q", shared.ErrInvalidInput, s)
	}
	return int64(f), nil
}

// firstID returns the first non-zero id.
func firstID(ids ...*FlexID) int64 {
	for _, id := range ids {
		if id != nil && *id != 0 {
			return int64(*id)
		}
	}
	return 0
}

// firstString returns the first non-blank string.
func firstString(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
