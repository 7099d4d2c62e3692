package demux

import "github.com/grailbio/base/errors"

// Counters is a per-worker counter map (spec.md §3). Each worker owns one
// exclusively; at worker shutdown it is handed to the supervisor, which
// merges all workers' counters by pure summation (spec.md §9 design note
// "avoid shared atomic maps on the hot path").
type Counters map[string]uint64

// Add increments key by delta, creating the entry if absent.
func (c Counters) Add(key string, delta uint64) {
	c[key] += delta
}

// Merge adds every entry of other into c in place.
func (c Counters) Merge(other Counters) {
	for k, v := range other {
		c[k] += v
	}
}

// ErrMissingCounter is a fatal StatsWriter error: a required counter
// ("total" or "unmatched") is absent from a completed run's merged
// counters (spec.md §7).
var ErrMissingCounter = errors.New("demux: missing required counter")

// ErrConfigError covers the construction-time validation failures checked by
// ValidateConfig: an error_rate outside [0, 1], or an empty adapter list with
// no inference source. A non-positive penalty is reported by align.New as
// align.ErrNonPositivePenalty instead.
var ErrConfigError = errors.New("demux: invalid configuration")

// ValidateConfig checks the error_rate and adapter-list invariants shared
// by both subcommands (spec.md §7's ConfigError kind). align.New separately
// rejects a non-positive penalty.
//
// spec.md §7 states the valid range as (0, 1], but spec.md §8's boundary
// behaviour requires error_rate = 0 to be accepted and to mean "only exact
// matches"; we take the boundary-behaviour test as authoritative and accept
// [0, 1] (see DESIGN.md, Open Question: error_rate lower bound).
func ValidateConfig(errorRate float64, adapters []string) error {
	if errorRate < 0 || errorRate > 1 {
		return errors.E(ErrConfigError, "error_rate must be in [0, 1]")
	}
	if len(adapters) == 0 {
		return errors.E(ErrConfigError, "adapter list is empty and no inference source was given")
	}
	return nil
}
