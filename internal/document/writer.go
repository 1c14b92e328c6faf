package document

import (
	"os"

	"gopkg.in/yaml.v3"
)

// WriteYAML dumps a document in a human-readable form, used to inspect
// what the parser and baker produced.
func WriteYAML(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadYAML reads a document previously written by WriteYAML.
func ReadYAML(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}
