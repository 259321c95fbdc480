package embed

import (
	"fmt"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region dictionary
// Dictionary maps predicate names to dense indices in insertion order.
// Duplicate names overwrite earlier entries; callers keep names unique.
type Dictionary struct {
	index map[string]int
}

// NewDictionary builds the name → index mapping from the full vocabulary.
func NewDictionary(predicates []parse.Predicate) *Dictionary {
	index := make(map[string]int, len(predicates))
	for i, p := range predicates {
		index[p.Name] = i
	}
	return &Dictionary{index: index}
}

// Index returns the index for name.
func (d *Dictionary) Index(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Size is the number of distinct names.
func (d *Dictionary) Size() int {
	return len(d.index)
}

// Map returns a copy of the mapping.
func (d *Dictionary) Map() map[string]int {
	out := make(map[string]int, len(d.index))
	for k, v := range d.index {
		out[k] = v
	}
	return out
}

// #endregion dictionary

// #region one-hot
// OneHot encodes each decision name as a row of length Size().
func (d *Dictionary) OneHot(names []string) ([][]float64, error) {
	width := d.Size()
	rows := make([][]float64, len(names))
	for i, name := range names {
		idx, ok := d.index[name]
		if !ok {
			return nil, fmt.Errorf("unknown predicate %q", name)
		}
		// duplicate names shrink Size() below the largest index
		if idx >= width {
			return nil, fmt.Errorf("predicate %q index %d out of range %d", name, idx, width)
		}
		row := make([]float64, width)
		row[idx] = 1
		rows[i] = row
	}
	return rows, nil
}

// #endregion one-hot
