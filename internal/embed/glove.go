package embed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// GloveDim is the word-vector width.
const GloveDim = 100

// #region glove
// Glove is a read-only word-vector table.
type Glove struct {
	vectors map[string][]float64
	dim     int
}

// NewGlove wraps an in-memory table. Every vector must have width dim.
func NewGlove(vectors map[string][]float64, dim int) (*Glove, error) {
	for w, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector for %q has width %d, want %d", w, len(v), dim)
		}
	}
	return &Glove{vectors: vectors, dim: dim}, nil
}

// LoadGlove reads the GloVe text format: one word followed by dim floats per line.
func LoadGlove(path string, dim int) (*Glove, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open glove %s: %w", path, err)
	}
	defer f.Close()
	g, err := ReadGlove(f, dim)
	if err != nil {
		return nil, fmt.Errorf("read glove %s: %w", path, err)
	}
	return g, nil
}

// ReadGlove parses GloVe text from r.
func ReadGlove(r io.Reader, dim int) (*Glove, error) {
	vectors := make(map[string][]float64)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim+1 {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", lineNum, dim+1, len(fields))
		}
		vec := make([]float64, dim)
		for i, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			vec[i] = v
		}
		vectors[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Glove{vectors: vectors, dim: dim}, nil
}

// Dim returns the vector width.
func (g *Glove) Dim() int { return g.dim }

// Vector returns the vector for token; unknown tokens get a zero vector.
func (g *Glove) Vector(token string) []float64 {
	if v, ok := g.vectors[token]; ok {
		return v
	}
	return make([]float64, g.dim)
}

// EmbedUtterance embeds tokens and zero-pads to utterLen rows.
func (g *Glove) EmbedUtterance(tokens []string, utterLen int) ([][]float64, error) {
	rows := make([][]float64, len(tokens))
	for i, tok := range tokens {
		rows[i] = g.Vector(tok)
	}
	return Pad(rows, utterLen, g.dim)
}

// #endregion glove
