// Package align implements the two approximate-matching algorithms used to
// assign a read pair to a barcode: semi-global alignment for inline adapter
// trimming, and Levenshtein edit distance for dual-index matching.
//
// The matrix-filling style follows github.com/grailbio/bio/util's
// Levenshtein implementation; the semi-global recurrence and its distance
// identity are ground in the original Python tool's use of
// parasail.sg_de_stats (see DESIGN.md).
package align

import (
	"math"

	"github.com/grailbio/base/errors"
)

// ErrNonPositivePenalty is a ConfigError (spec.md §7): penalty must be >= 1.
var ErrNonPositivePenalty = errors.New("align: penalty must be >= 1")

// Aligner holds the fixed scoring parameters shared by every alignment and
// edit-distance call a worker makes.
type Aligner struct {
	Score   int
	Penalty int
}

// New validates score/penalty and constructs an Aligner. penalty <= 0 is a
// ConfigError.
func New(score, penalty int) (*Aligner, error) {
	if penalty < 1 {
		return nil, ErrNonPositivePenalty
	}
	if score < 1 {
		score = 1
	}
	return &Aligner{Score: score, Penalty: penalty}, nil
}

// Result is the outcome of a semi-global alignment of an adapter against a
// probe (spec.md §4.1).
type Result struct {
	Matches int
	Score   int
	EndRef  int // 0-based index in probe of the last aligned base
}

// Align performs semi-global alignment of adapter against probe: global on
// adapter (every adapter base is consumed by a match, substitution, or
// indel), free end-gaps on probe at both ends. Ties in the best score
// prefer the alignment ending at the leftmost position in probe.
func (a *Aligner) Align(adapter, probe string) Result {
	n, m := len(adapter), len(probe)

	// h[i][j] is the best score aligning adapter[:i] against probe[:j].
	h := make([][]int, n+1)
	for i := range h {
		h[i] = make([]int, m+1)
	}
	for j := 0; j <= m; j++ {
		h[0][j] = 0 // free gap at the start of the reference (probe)
	}
	for i := 1; i <= n; i++ {
		h[i][0] = -a.Penalty * i
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			diag := h[i-1][j-1]
			if adapter[i-1] == probe[j-1] {
				diag += a.Score
			} else {
				diag -= a.Penalty
			}
			up := h[i-1][j] - a.Penalty
			left := h[i][j-1] - a.Penalty
			best := diag
			if up > best {
				best = up
			}
			if left > best {
				best = left
			}
			h[i][j] = best
		}
	}

	bestJ := 0
	bestScore := h[n][0]
	for j := 1; j <= m; j++ {
		if h[n][j] > bestScore {
			bestScore = h[n][j]
			bestJ = j
		}
	}

	matches := 0
	i, j := n, bestJ
	for i > 0 {
		var diag int
		if j > 0 {
			diag = h[i-1][j-1]
			if adapter[i-1] == probe[j-1] {
				diag += a.Score
			} else {
				diag -= a.Penalty
			}
		}
		switch {
		case j > 0 && h[i][j] == diag:
			if adapter[i-1] == probe[j-1] {
				matches++
			}
			i--
			j--
		case h[i][j] == h[i-1][j]-a.Penalty:
			i--
		default:
			j--
		}
	}

	return Result{Matches: matches, Score: bestScore, EndRef: bestJ - 1}
}

// Distance converts an alignment result into the implied number of
// substitutions plus indels, per spec.md §9: the identity
// distance = (score*matches - alignment_score) / penalty holds because gap
// open, gap extend, and mismatch all cost exactly penalty, and match costs
// exactly score.
func (a *Aligner) Distance(r Result) int {
	return (a.Score*r.Matches - r.Score) / a.Penalty
}

// MinMatchLength computes round(min_k(|adapter_k|)/2) across the given
// adapters, per spec.md §4.1 and the Open Question in spec.md §9 (the
// source's min([len/2 ...]) is a literal minimum, not a mean; we adopt that
// literal reading).
func MinMatchLength(adapters []string) int {
	if len(adapters) == 0 {
		return 0
	}
	min := len(adapters[0])
	for _, a := range adapters[1:] {
		if len(a) < min {
			min = len(a)
		}
	}
	return int(math.Round(float64(min) / 2))
}

// MaxDistance returns floor(len(adapter) * errorRate), the acceptance
// threshold used by both matching algorithms (spec.md §4.1).
func MaxDistance(adapterLen int, errorRate float64) int {
	return int(math.Floor(float64(adapterLen) * errorRate))
}

// EditDistance computes the Levenshtein distance between a and b: the
// minimum number of single-character insertions, deletions, and
// substitutions needed to transform a into b.
func EditDistance(a, b string) int {
	n, m := len(a), len(b)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	for i := 1; i <= n; i++ {
		curr[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			curr[j] = best
		}
		prev, curr = curr, prev
	}
	return prev[m]
}
