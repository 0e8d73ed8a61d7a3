package construct

import json "github.com/goccy/go-json"

// DumpJSON renders a parsed value as indented JSON for inspection.
// Containers marshal in field order and byte fields come out as integer
// arrays, so a dump lines up with a hex view of the input.
func DumpJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
