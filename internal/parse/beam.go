package parse

// #region beam
// Beam is the ordered set of paths kept for one example.
type Beam struct {
	paths []*ParsePath
}

// NewBeam wraps paths in a Beam.
func NewBeam(paths []*ParsePath) *Beam {
	return &Beam{paths: paths}
}

// Paths returns the beam's paths in order.
func (b *Beam) Paths() []*ParsePath {
	if b == nil {
		return nil
	}
	return b.paths
}

// Len returns the number of paths.
func (b *Beam) Len() int {
	if b == nil {
		return 0
	}
	return len(b.paths)
}

// NumCases returns the total number of cases across all paths.
func (b *Beam) NumCases() int {
	n := 0
	for _, p := range b.Paths() {
		n += p.Len()
	}
	return n
}

// Terminated returns a beam holding only the terminated paths, in order.
func (b *Beam) Terminated() *Beam {
	var out []*ParsePath
	for _, p := range b.Paths() {
		if p.Terminated() {
			out = append(out, p)
		}
	}
	return &Beam{paths: out}
}

// #endregion beam
