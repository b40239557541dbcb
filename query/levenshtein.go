package query

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/goedderz/iresearch/metrics"
	"golang.org/x/sync/singleflight"
)

// maxSupportedEdits bounds how far a fuzzy query can stray from its
// target; a bound beyond this would blow up the automaton's state
// space for no practical benefit (spec.md §4.6 "a null pdp (unsupported
// max_d) yields an empty prepared filter").
const maxSupportedEdits = 8

// levenshteinDescription is the term-independent half of a Levenshtein
// automaton: its edit-distance bound and whether an adjacent swap
// counts as one edit (Damerau) rather than two (plain Levenshtein).
// Building the automaton itself still requires the query term, so this
// description only saves the validation work, but it is the thing two
// concurrent fuzzy queries for the same (max_d, transpositions) pair
// would otherwise race to validate redundantly.
type levenshteinDescription struct {
	maxEdits       int
	transpositions bool
}

var pdpCache = newDescriptionCache()

type descriptionCache struct {
	mu    sync.Mutex
	group singleflight.Group
	byKey map[string]*levenshteinDescription
}

func newDescriptionCache() *descriptionCache {
	return &descriptionCache{byKey: make(map[string]*levenshteinDescription)}
}

func descriptionKey(maxEdits int, transpositions bool) string {
	return fmt.Sprintf("%d:%v", maxEdits, transpositions)
}

// pdp returns the cached description for (maxEdits, transpositions),
// building it at most once across concurrent callers.
func (c *descriptionCache) pdp(maxEdits int, transpositions bool) (*levenshteinDescription, error) {
	key := descriptionKey(maxEdits, transpositions)

	c.mu.Lock()
	if d, ok := c.byKey[key]; ok {
		c.mu.Unlock()
		metrics.Default.FuzzyDescriptionCacheHitsTotal.Inc()
		return d, nil
	}
	c.mu.Unlock()

	metrics.Default.FuzzyDescriptionCacheMissesTotal.Inc()
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if maxEdits < 0 || maxEdits > maxSupportedEdits {
			return nil, fmt.Errorf("query: unsupported edit-distance bound %d", maxEdits)
		}
		return &levenshteinDescription{maxEdits: maxEdits, transpositions: transpositions}, nil
	})
	if err != nil {
		return nil, err
	}
	d := v.(*levenshteinDescription)

	c.mu.Lock()
	c.byKey[key] = d
	c.mu.Unlock()
	return d, nil
}

// levAutomaton drives a Damerau-Levenshtein bound against query, fed by
// termdict.Matcher's byte-at-a-time Step, satisfying spec.md §8's
// requirement that the reported distance match the reference
// Damerau/Levenshtein distance for UTF-8 strings — a codepoint-level
// measure, not a byte-level one. query is decoded into runes up front;
// each state pairs the DP row of edit distances between query's rune
// prefixes and the term runes consumed so far with any trailing bytes
// of an as-yet-incomplete UTF-8 rune, so the row only advances once a
// full rune has arrived. This is the direct NFA/DP equivalent of a
// parametric Levenshtein description, traded for simplicity over the
// table-driven construction real Lucene-style engines precompute.
type levAutomaton struct {
	query          []rune
	maxEdits       int
	transpositions bool

	states []levState

	// lastAccepted records the state Accepting most recently approved,
	// so a VisitMatching visitor (which only receives the matched term,
	// not the automaton state that accepted it) can still recover the
	// exact distance for that term via Distance(lastAccepted).
	// VisitMatching always calls Accepting(cur) immediately before
	// invoking the visitor for that same term, so this is safe for the
	// single-threaded walk the matcher is driven by.
	lastAccepted int
}

type levRow []int

// levState is one automaton state: the committed DP row plus the
// incomplete trailing byte sequence (0-3 bytes) of a rune still being
// assembled.
type levState struct {
	row      levRow
	prevRow  levRow
	lastRune rune
	partial  []byte
}

func newLevAutomaton(query []byte, d *levenshteinDescription) *levAutomaton {
	runes := []rune(string(query))
	n := len(runes)
	root := make(levRow, n+1)
	for i := range root {
		root[i] = i
	}
	return &levAutomaton{
		query:          runes,
		maxEdits:       d.maxEdits,
		transpositions: d.transpositions,
		states:         []levState{{row: root}},
	}
}

func (a *levAutomaton) Start() int { return 0 }

// Step accumulates b into the current state's pending UTF-8 bytes and,
// once they form a complete rune, advances the DP row by that rune.
// Any bytes left over after decoding (only possible following an
// invalid encoding) carry forward as the new state's pending bytes
// rather than being dropped.
func (a *levAutomaton) Step(state int, b byte) (int, bool) {
	st := a.states[state]
	buf := append(append([]byte(nil), st.partial...), b)
	if !utf8.FullRune(buf) {
		id := len(a.states)
		a.states = append(a.states, levState{row: st.row, prevRow: st.prevRow, lastRune: st.lastRune, partial: buf})
		return id, true
	}

	r, size := utf8.DecodeRune(buf)
	nextRow, ok := a.stepRune(st.row, st.prevRow, st.lastRune, r)
	if !ok {
		return 0, false
	}
	id := len(a.states)
	a.states = append(a.states, levState{row: nextRow, prevRow: st.row, lastRune: r, partial: buf[size:]})
	return id, true
}

// stepRune computes the DP row after consuming rune b, given the
// current row r, the row before it p (only needed for transpositions),
// and the previously consumed rune.
func (a *levAutomaton) stepRune(r, p levRow, lastRune rune, b rune) (levRow, bool) {
	n := len(a.query)
	nr := make(levRow, n+1)
	nr[0] = r[0] + 1

	minVal := nr[0]
	for i := 1; i <= n; i++ {
		cost := 1
		if a.query[i-1] == b {
			cost = 0
		}
		best := r[i-1] + cost // substitute/match
		if v := nr[i-1] + 1; v < best {
			best = v // delete query[i-1]
		}
		if v := r[i] + 1; v < best {
			best = v // insert b
		}
		if a.transpositions && i >= 2 && p != nil && a.query[i-1] == lastRune && a.query[i-2] == b {
			if v := p[i-2] + 1; v < best {
				best = v
			}
		}
		nr[i] = best
		if best < minVal {
			minVal = best
		}
	}
	if minVal > a.maxEdits {
		return nil, false
	}
	return nr, true
}

func (a *levAutomaton) Accepting(state int) bool {
	r := a.states[state].row
	ok := r[len(r)-1] <= a.maxEdits
	if ok {
		a.lastAccepted = state
	}
	return ok
}

func (a *levAutomaton) CanMatch(state int) bool {
	for _, v := range a.states[state].row {
		if v <= a.maxEdits {
			return true
		}
	}
	return false
}

// Distance returns the exact edit distance at an accepting state.
func (a *levAutomaton) Distance(state int) int {
	r := a.states[state].row
	return r[len(r)-1]
}
