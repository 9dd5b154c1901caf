package periodictable

import (
	"errors"
	"fmt"
)

// TableDTO is the wire payload of GET /periodic-table.
type TableDTO struct {
	Elements []ElementDTO `json:"elements"`
}

// ElementDTO is one element on the wire.
type ElementDTO struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Number int    `json:"number"`
}

// ErrInvalidPayload is wrapped by every TableDTO validation failure.
var ErrInvalidPayload = errors.New("invalid periodic table payload")

// Validate rejects payloads without elements, elements without a symbol and
// non-positive atomic numbers.
func (d TableDTO) Validate() error {
	if d.Elements == nil {
		return fmt.Errorf("%w: missing elements", ErrInvalidPayload)
	}
	for i, e := range d.Elements {
		if e.Symbol == "" {
			return fmt.Errorf("%w: element %d has no symbol", ErrInvalidPayload, i)
		}
		if e.Number <= 0 {
			return fmt.Errorf("%w: element %s has atomic number %d", ErrInvalidPayload, e.Symbol, e.Number)
		}
	}
	return nil
}
