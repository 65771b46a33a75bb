// Package history implements the append-only, ranked command-history log
// described in spec.md §3/§4.D: in-memory navigation with stash/skip
// semantics, plus Lua-style fuzzy pattern scoring for search and
// directory search, grounded on the liner/linenoise corpus's history
// navigation (crawshaw-liner's getHistoryByPrefix/getHistoryByPattern,
// barun-bash-human's historyUp/historyDown) generalized with the
// scoring rules spec.md §4.D documents.
package history

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Entry is one recorded command, per spec.md §3 HistoryEntry.
type Entry struct {
	Cmd      string
	Ts       int64
	Duration int
	Cwd      string
	Exit     int
	Mode     string
}

// Store is the opaque persistence contract spec.md §4.D describes. A nil
// Store is valid: History then keeps entries in memory only.
type Store interface {
	SaveHistoryEntry(mode string, e Entry) error
	LoadHistory(mode string, max int) ([]Entry, error)
	Close() error
}

// FailingStore is the deterministic stub returned by callers when a real
// store's connection fails: every Store operation fails, but nothing
// panics, matching spec.md §4.D's "no exceptions surface" contract.
type FailingStore struct{ Err error }

func (s FailingStore) SaveHistoryEntry(string, Entry) error   { return s.err() }
func (s FailingStore) LoadHistory(string, int) ([]Entry, error) { return nil, s.err() }
func (s FailingStore) Close() error                            { return s.err() }
func (s FailingStore) err() error {
	if s.Err != nil {
		return s.Err
	}
	return errFailingStore
}

var errFailingStore = &storeError{"history: store unavailable"}

type storeError struct{ msg string }

func (e *storeError) Error() string { return e.msg }

var dontRecord = []*regexp.Regexp{
	regexp.MustCompile(`^\.\.+`), // cd-dots, e.g. "..", "...."
	regexp.MustCompile(`^[xz] `), // jumpers, e.g. "z foo", "x bar"
}

// History is the in-memory, append-only command log with stash-based
// up/down navigation, per spec.md §3/§4.D.
type History struct {
	entries  []Entry
	store    Store
	position int // 0 = not browsing; >0 = browsing, see lastIndex
	lastIndex int // index into entries currently shown, valid when position>0
	stash    string
	hasStash bool
}

// New builds a History backed by an optional Store (may be nil).
func New(store Store) *History {
	return &History{store: store}
}

// Load populates the in-memory list from the bound store, most-recent
// entries last (chronological), up to max (0 = unbounded).
func (h *History) Load(mode string, max int) error {
	if h.store == nil {
		return nil
	}
	entries, err := h.store.LoadHistory(mode, max)
	if err != nil {
		return err
	}
	h.entries = append(h.entries, entries...)
	return nil
}

// Len reports the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns the recorded entries in insertion order. Callers must
// not mutate the returned slice.
func (h *History) Entries() []Entry { return h.entries }

// shouldReject applies spec.md §4.D's three rejection rules.
func shouldReject(cmd string) bool {
	if cmd == "" || strings.HasPrefix(cmd, " ") {
		return true
	}
	for _, re := range dontRecord {
		if re.MatchString(cmd) {
			return true
		}
	}
	return false
}

// Add validates and appends cmd as a HistoryEntry, computed from the
// executor's env-var contract (LILUSH_EXEC_START/_END/_STATUS) plus the
// given cwd and mode. It reports whether the entry was recorded.
func (h *History) Add(cmd, cwd, mode string) bool {
	if shouldReject(cmd) {
		return false
	}
	entry := Entry{
		Cmd:      cmd,
		Ts:       envInt64("LILUSH_EXEC_START"),
		Duration: int(envInt64("LILUSH_EXEC_END") - envInt64("LILUSH_EXEC_START")),
		Cwd:      abbreviateHome(cwd),
		Exit:     int(envInt64("LILUSH_EXEC_STATUS")),
		Mode:     mode,
	}
	h.entries = append(h.entries, entry)
	if h.store != nil {
		_ = h.store.SaveHistoryEntry(mode, entry)
	}
	h.position = 0
	return true
}

func envInt64(name string) int64 {
	v, _ := strconv.ParseInt(os.Getenv(name), 10, 64)
	return v
}

func abbreviateHome(cwd string) string {
	home := os.Getenv("HOME")
	if home == "" {
		return cwd
	}
	if cwd == home {
		return "~"
	}
	if strings.HasPrefix(cwd, home+"/") {
		return "~" + strings.TrimPrefix(cwd, home)
	}
	return cwd
}

// Stash overwrites the in-progress-buffer stash used by Up()/Get().
func (h *History) Stash(buffer string) {
	h.stash = buffer
	h.hasStash = true
}

// Up moves navigation toward older entries, skipping runs of identical
// commands, per spec.md §4.D. Returns ("", false) when there is nowhere
// older to go.
func (h *History) Up(currentBuffer string) (string, bool) {
	if h.position == 0 {
		h.Stash(currentBuffer)
		h.lastIndex = len(h.entries)
	}
	idx := h.lastIndex - 1
	for idx >= 0 {
		if idx+1 < len(h.entries) && h.entries[idx].Cmd == h.entries[idx+1].Cmd {
			idx--
			continue
		}
		h.lastIndex = idx
		h.position++
		return h.entries[idx].Cmd, true
	}
	return "", false
}

// Down moves navigation toward newer entries, skipping runs of identical
// commands, or back to the stashed in-progress buffer once position
// reaches 0.
func (h *History) Down() (string, bool) {
	if h.position <= 0 {
		return "", false
	}
	idx := h.lastIndex + 1
	for idx < len(h.entries) {
		if idx > 0 && h.entries[idx].Cmd == h.entries[idx-1].Cmd {
			idx++
			continue
		}
		h.lastIndex = idx
		h.position--
		return h.entries[idx].Cmd, true
	}
	h.position = 0
	h.lastIndex = 0
	return h.Get()
}

// Get returns the position-0 stash once, then clears it, per spec.md §4.D.
func (h *History) Get() (string, bool) {
	if h.position != 0 || !h.hasStash {
		return "", false
	}
	s := h.stash
	h.stash = ""
	h.hasStash = false
	return s, true
}

// luaPattern builds the ".-" + escape(tok) + ... glob-like pattern
// spec.md §4.D describes, then compiles it as a regexp.
func luaPattern(tokens []string) *regexp.Regexp {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(".*")
		sb.WriteString(regexp.QuoteMeta(tok))
	}
	sb.WriteString(".*")
	return regexp.MustCompile(sb.String())
}

// Search performs the fuzzy, rank-based command search of spec.md §4.D:
// +1 per pattern match, +2 if the entry's cwd matches currentCwd, -1 if
// exit != 0; results are deduplicated by Cmd and sorted score desc, then
// lexicographically desc as a tie-breaker.
func (h *History) Search(tokens []string, currentCwd string) []string {
	if len(tokens) == 0 {
		return nil
	}
	re := luaPattern(tokens)
	scores := map[string]int{}
	order := []string{}
	for _, e := range h.entries {
		if !re.MatchString(e.Cmd) {
			continue
		}
		if _, seen := scores[e.Cmd]; !seen {
			order = append(order, e.Cmd)
		}
		score := 1
		if e.Cwd == currentCwd {
			score += 2
		}
		if e.Exit != 0 {
			score--
		}
		scores[e.Cmd] += score
	}
	sort.SliceStable(order, func(i, j int) bool {
		if scores[order[i]] != scores[order[j]] {
			return scores[order[i]] > scores[order[j]]
		}
		return order[i] > order[j]
	})
	return order
}

// DirSearch is Search's analog over Cwd, favoring shorter directories via
// a length-weighted bonus pattern_len/(cwd_len/100), per spec.md §4.D.
func (h *History) DirSearch(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	re := luaPattern(tokens)
	patternLen := 0
	for _, tok := range tokens {
		patternLen += len(tok)
	}
	scores := map[string]float64{}
	order := []string{}
	for _, e := range h.entries {
		if e.Cwd == "" || !re.MatchString(e.Cwd) {
			continue
		}
		if _, seen := scores[e.Cwd]; !seen {
			order = append(order, e.Cwd)
		}
		cwdLen := float64(len(e.Cwd))
		bonus := float64(patternLen)
		if cwdLen > 0 {
			bonus = float64(patternLen) / (cwdLen / 100)
		}
		scores[e.Cwd] += 1 + bonus
	}
	sort.SliceStable(order, func(i, j int) bool {
		if scores[order[i]] != scores[order[j]] {
			return scores[order[i]] > scores[order[j]]
		}
		return order[i] > order[j]
	})
	return order
}

// RankedSearch is a supplemented convenience combining Search with a
// caller-chosen result cap, for callers that want "top N" without
// re-sorting candidates themselves.
func (h *History) RankedSearch(tokens []string, currentCwd string, limit int) []string {
	results := h.Search(tokens, currentCwd)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// LastArg returns the last whitespace-separated token of the most recent
// entry, or "" if there is no history.
func (h *History) LastArg() string {
	if len(h.entries) == 0 {
		return ""
	}
	fields := strings.Fields(h.entries[len(h.entries)-1].Cmd)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Close releases the bound store, if any.
func (h *History) Close() error {
	if h.store == nil {
		return nil
	}
	return h.store.Close()
}
