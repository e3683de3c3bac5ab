package prescription

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a prescription from a YAML (or JSON) file.
func LoadFile(path string) (Prescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prescription{}, fmt.Errorf("failed to read prescription file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) prescription document and applies defaults.
func Parse(data []byte) (Prescription, error) {
	var p Prescription
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prescription{}, fmt.Errorf("failed to parse prescription: %w", err)
	}
	return p.WithDefaults(), nil
}
