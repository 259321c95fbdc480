package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region mode
// Mode selects how path scores become beam probabilities.
type Mode string

const (
	Local  Mode = "local"
	Global Mode = "global"
)

// ErrGlobalUnsupported is returned when global normalization is requested.
var ErrGlobalUnsupported = errors.New("global normalization is no longer supported")

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Local, Global:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown normalization %q", s)
	}
}

// #endregion mode

// #region normalizer
// Normalizer converts a beam into per-path probabilities and ranks paths
// during exploration.
type Normalizer interface {
	Mode() Mode
	// Probs returns one probability per path; empty beams yield an empty slice.
	Probs(beam *parse.Beam) []float64
	// Rank orders candidate paths; higher is better.
	Rank(path *parse.ParsePath) float64
}

// New returns the normalizer for mode. Global is recognized but rejected.
func New(mode Mode) (Normalizer, error) {
	switch mode {
	case Local:
		return localNormalizer{}, nil
	case Global:
		return nil, ErrGlobalUnsupported
	default:
		return nil, fmt.Errorf("unknown normalization %q", mode)
	}
}

// #endregion normalizer

// #region local
// localNormalizer uses exp(log_prob) per path. Pruned continuations mean the
// result need not sum to 1.
type localNormalizer struct{}

func (localNormalizer) Mode() Mode { return Local }

func (localNormalizer) Probs(beam *parse.Beam) []float64 {
	paths := beam.Paths()
	probs := make([]float64, len(paths))
	for i, p := range paths {
		probs[i] = math.Exp(p.LogProb())
	}
	return probs
}

func (localNormalizer) Rank(path *parse.ParsePath) float64 { return path.LogProb() }

// #endregion local

// #region global
// globalNormalizer shifts scores by the beam minimum and divides by the sum.
// Not reachable through New.
type globalNormalizer struct{}

func (globalNormalizer) Mode() Mode { return Global }

func (globalNormalizer) Probs(beam *parse.Beam) []float64 {
	paths := beam.Paths()
	probs := make([]float64, len(paths))
	if len(paths) == 0 {
		return probs
	}
	lo := math.Inf(1)
	for _, p := range paths {
		if s := p.Score(); s < lo {
			lo = s
		}
	}
	var sum float64
	for i, p := range paths {
		probs[i] = p.Score() - lo
		sum += probs[i]
	}
	if sum == 0 {
		for i := range probs {
			probs[i] = 1 / float64(len(probs))
		}
		return probs
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func (globalNormalizer) Rank(path *parse.ParsePath) float64 { return path.Score() }

// #endregion global
