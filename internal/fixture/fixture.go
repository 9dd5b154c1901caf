// Package fixture embeds the JSON payloads served by the mock backend and
// used by tests.
package fixture

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
)

//go:embed data/*.json
var files embed.FS

// Elements is the periodic-table payload.
const Elements = "elements.json"

// Read returns the raw bytes of a fixture.
func Read(name string) ([]byte, error) {
	data, err := files.ReadFile("data/" + name)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}
	return data, nil
}

// MustRead is Read for fixtures known to exist at build time.
func MustRead(name string) []byte {
	data, err := Read(name)
	if err != nil {
		panic(err)
	}
	return data
}

// Load decodes a fixture into T. Unknown fields are rejected so fixtures
// stay in step with the types that read them.
func Load[T any](name string) (T, error) {
	var v T

	data, err := Read(name)
	if err != nil {
		return v, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return v, nil
}

// Names lists the embedded fixtures.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(files, "data")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
