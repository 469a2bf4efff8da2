package draft

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads an editing state from a draft JSON file. The draft stays
// in-memory during editing; files are only a CLI input/output format.
func Load(path string) (State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("read draft file: %w", err)
	}

	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("parse draft file: %w", err)
	}

	if len(s.Assessment.Modules) == 0 {
		return State{}, fmt.Errorf("draft file %s has no modules", path)
	}
	return s, nil
}

// Save writes an editing state to a draft JSON file.
func Save(path string, s State) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write draft file: %w", err)
	}
	return nil
}
