package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads a YAML Selection from path. Fields missing from the
// file keep the values of base. The file is only read, never written.
func LoadProfile(path string, base Selection) (Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Selection{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data, base)
}

// ParseProfile decodes a YAML Selection over base. Unknown keys are an error.
func ParseProfile(data []byte, base Selection) (Selection, error) {
	sel := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sel); err != nil && !errors.Is(err, io.EOF) {
		return Selection{}, fmt.Errorf("parse profile: %w", err)
	}
	return sel, nil
}
