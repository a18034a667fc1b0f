package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/cesargomez89/quarry/internal/locations"
)

var stdout io.Writer = os.Stdout

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stdoutIsTTY() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// splitList parses a comma-separated flag value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadCatalog(path string) (*locations.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return locations.Default(), nil
	}
	return locations.Load(path)
}
