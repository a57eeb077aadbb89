package fileutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoModelJSON is returned when a model reply holds no JSON object at all.
var ErrNoModelJSON = errors.New("no JSON object found in model output")

// DecodeModelJSON decodes the JSON object in a model reply into v. Models sometimes wrap the
// object in a code fence or a sentence; the outermost braces are used then.
func DecodeModelJSON(reply string, v any) error {
	s := strings.TrimSpace(reply)
	if json.Valid([]byte(s)) {
		if err := json.Unmarshal([]byte(s), v); err != nil {
			return fmt.Errorf("decode model output: %w", err)
		}
		return nil
	}

	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("decode model output (%d bytes): %w", len(s), ErrNoModelJSON)
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("decode model output: embedded object: %w", err)
	}
	return nil
}
