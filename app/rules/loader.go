package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Rules files are authored as JSONC: JSON extended with // line
// comments, /* block comments */ and trailing commas. Comments are
// stripped before unmarshalling.

// Parse decodes a JSONC rules document.
func Parse(data []byte) (*Document, error) {
	stripped := jsonc.ToJSON(data)

	var doc Document
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return &doc, nil
}

// LoadFile reads a JSONC rules file and merges it into the store.
// Read and parse failures wrap the underlying error; a structurally
// invalid document surfaces as a SpecError.
func LoadFile(path string, store *Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return store.AddRules(*doc)
}
