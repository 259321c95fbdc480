package parse

// #region parse-path
// ParsePath is an ordered sequence of cases forming one candidate derivation.
// Each path owns its cases; extending a path copies them.
type ParsePath struct {
	context    *Context
	cases      []ParseCase
	terminated bool
	denotation []Value
	execErr    error
}

// EmptyPath returns a path with no decisions.
func EmptyPath(ctx *Context) *ParsePath {
	return &ParsePath{context: ctx}
}

// #endregion parse-path

// #region accessors
// Context returns the context the path is parsed against.
func (p *ParsePath) Context() *Context { return p.context }

// Len returns the number of cases.
func (p *ParsePath) Len() int { return len(p.cases) }

// Cases returns pointers into the path's own case storage.
func (p *ParsePath) Cases() []*ParseCase {
	out := make([]*ParseCase, len(p.cases))
	for i := range p.cases {
		out[i] = &p.cases[i]
	}
	return out
}

// Decisions returns the predicates chosen so far.
func (p *ParsePath) Decisions() []Predicate {
	out := make([]Predicate, len(p.cases))
	for i := range p.cases {
		out[i] = p.cases[i].Decision()
	}
	return out
}

// DecisionNames returns the names of the predicates chosen so far.
func (p *ParsePath) DecisionNames() []string {
	out := make([]string, len(p.cases))
	for i := range p.cases {
		out[i] = p.cases[i].Decision().Name
	}
	return out
}

// LogProb is the sum of the chosen decisions' log-probabilities.
func (p *ParsePath) LogProb() float64 {
	var sum float64
	for i := range p.cases {
		sum += p.cases[i].DecisionLogProb()
	}
	return sum
}

// Score is the sum of the chosen decisions' logits.
func (p *ParsePath) Score() float64 {
	var sum float64
	for i := range p.cases {
		sum += p.cases[i].DecisionLogit()
	}
	return sum
}

// Terminated reports whether the path has been finalized.
func (p *ParsePath) Terminated() bool { return p.terminated }

// FinalizedDenotation returns the executed denotation of a terminated path.
func (p *ParsePath) FinalizedDenotation() ([]Value, error) {
	return p.denotation, p.execErr
}

// Correct reports whether the finalized denotation matches answer.
func (p *ParsePath) Correct(answer []Value) bool {
	if !p.terminated {
		return false
	}
	return CheckDenotation(answer, p.denotation, p.execErr)
}

// #endregion accessors

// #region extend
// NewCase returns an undecided case positioned at the end of the path.
func (p *ParsePath) NewCase(choices []Predicate) *ParseCase {
	return &ParseCase{
		Context:       p.context,
		Depth:         len(p.cases),
		Previous:      p.DecisionNames(),
		Choices:       choices,
		DecisionIndex: -1,
	}
}

// Extend returns a new path with c appended and its choice set to index.
// The receiver is not modified.
func (p *ParsePath) Extend(c *ParseCase, index int) *ParsePath {
	cases := make([]ParseCase, len(p.cases)+1)
	copy(cases, p.cases)
	next := *c
	next.Previous = append([]string(nil), c.Previous...)
	next.DecisionIndex = index
	cases[len(p.cases)] = next
	return &ParsePath{context: p.context, cases: cases}
}

// Finalize marks the path terminal with its execution result.
func (p *ParsePath) Finalize(denotation []Value, execErr error) {
	p.terminated = true
	p.denotation = denotation
	p.execErr = execErr
}

// #endregion extend
