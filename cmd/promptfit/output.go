package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/s33g/promptfit/internal/layout"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func checkFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unknown format %q (expected text or json)", format)
	}
	return nil
}

// fitResult is the JSON output of the fit command
type fitResult struct {
	Budget int           `json:"budget"`
	Tokens int           `json:"tokens"`
	Layout layout.Layout `json:"layout"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLayout(w io.Writer, l layout.Layout, format string) error {
	if format == formatJSON {
		return writeJSON(w, l)
	}
	_, err := fmt.Fprintln(w, layout.Render(l))
	return err
}
