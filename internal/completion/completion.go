// Package completion implements the pluggable, rank-and-merge completion
// engine of spec.md §3/§4.E: independent Source implementations are
// polled per search, concatenated preserving per-source order, and
// exposed through scroll/promote semantics. Grounded on the
// CompletionCallback/Completion shape of
// hasyimibhar-go-linenoise/linenoise.go and deadsy-go-cli/linenoise.go's
// SetCompletionCallback, generalized to multiple named sources per
// spec.md §3's `sources: name → Source` map.
package completion

import "strings"

// CandidateMeta carries per-candidate promotion behavior, per spec.md §3.
type CandidateMeta struct {
	SourceName    string
	ReplacePrompt string // if set, promotion replaces this prefix instead of appending
	HasReplace    bool
	ExecOnProm    bool
	TrimPromotion bool
	ReduceSpaces  bool
}

// Source is one completion provider. Update refreshes any cached catalog
// (e.g. a $PATH executable scan); Search returns this source's
// candidates (already self-ranked) for the given tokenized buffer.
type Source interface {
	Name() string
	Update() error
	Search(tokens []string, buffer string) ([]string, []CandidateMeta)
}

// Completion is the merged candidate list plus navigation/promotion
// state, per spec.md §3.
type Completion struct {
	candidates []string
	meta       []CandidateMeta
	chosen     int // 1-based; 0 = none
	sources    map[string]Source
	order      []string // source poll order, preserved for deterministic merge
}

// New builds an empty Completion bound to the given sources, polled in
// the given order.
func New(order []string, sources map[string]Source) *Completion {
	return &Completion{sources: sources, order: order}
}

// AddSource registers or replaces a named source, appending it to the
// poll order if new.
func (c *Completion) AddSource(s Source) {
	if c.sources == nil {
		c.sources = map[string]Source{}
	}
	if _, exists := c.sources[s.Name()]; !exists {
		c.order = append(c.order, s.Name())
	}
	c.sources[s.Name()] = s
}

// Tokenize splits buffer into command + args, quote-aware, per spec.md
// §4.E step 1: a run inside matching single or double quotes is one
// token even if it contains spaces.
func Tokenize(buffer string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	has := false
	for _, r := range buffer {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			has = true
		case r == ' ' || r == '\t':
			if has || cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
				has = false
			}
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	if has || cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// Search polls every enabled source, merges their candidates preserving
// per-source ordering (step 3), and reports whether any candidate was
// produced (step 4). An empty result flushes the object.
func (c *Completion) Search(buffer string, history interface{}) bool {
	tokens := Tokenize(buffer)

	var candidates []string
	var meta []CandidateMeta
	for _, name := range c.order {
		src, ok := c.sources[name]
		if !ok {
			continue
		}
		cands, m := src.Search(tokens, buffer)
		candidates = append(candidates, cands...)
		meta = append(meta, m...)
	}

	if len(candidates) == 0 {
		c.flush()
		return false
	}
	c.candidates = candidates
	c.meta = meta
	c.chosen = 1
	return true
}

// flush clears the merged result, per spec.md §4.E step 4.
func (c *Completion) flush() {
	c.candidates = nil
	c.meta = nil
	c.chosen = 0
}

// Flush is the exported form, for callers (e.g. the input state) that
// need to discard stale completions outside of a Search call.
func (c *Completion) Flush() { c.flush() }

// Empty reports whether there is no merged candidate list.
func (c *Completion) Empty() bool { return len(c.candidates) == 0 }

// Get returns the chosen candidate string, or "" when empty. The
// promoted flag governs presentation only (style selection is left to
// the view layer; Get itself returns the raw candidate).
func (c *Completion) Get(promoted bool) string {
	if c.chosen < 1 || c.chosen > len(c.candidates) {
		return ""
	}
	return c.candidates[c.chosen-1]
}

// Chosen returns the 1-based index of the current candidate (0 = none).
func (c *Completion) Chosen() int { return c.chosen }

// CurrentMeta returns the CandidateMeta for the chosen candidate, or the
// zero value when empty.
func (c *Completion) CurrentMeta() CandidateMeta {
	if c.chosen < 1 || c.chosen > len(c.meta) {
		return CandidateMeta{}
	}
	return c.meta[c.chosen-1]
}

// ScrollUp/ScrollDown move the chosen index circularly, per spec.md §4.E
// "Scroll is circular".
func (c *Completion) ScrollUp() {
	if len(c.candidates) == 0 {
		return
	}
	c.chosen--
	if c.chosen < 1 {
		c.chosen = len(c.candidates)
	}
}

func (c *Completion) ScrollDown() {
	if len(c.candidates) == 0 {
		return
	}
	c.chosen++
	if c.chosen > len(c.candidates) {
		c.chosen = 1
	}
}

// Promote applies the chosen candidate's promotion rules to buffer,
// returning the new buffer and whether the caller should immediately
// submit the command (meta.ExecOnProm).
func (c *Completion) Promote(buffer string) (newBuffer string, execNow bool) {
	if c.chosen < 1 || c.chosen > len(c.candidates) {
		return buffer, false
	}
	cand := c.candidates[c.chosen-1]
	m := c.meta[c.chosen-1]

	if m.TrimPromotion {
		cand = strings.TrimLeft(cand, " \t")
	}
	if m.ReduceSpaces {
		cand = strings.Join(strings.Fields(cand), " ")
	}

	if m.HasReplace && strings.HasSuffix(buffer, m.ReplacePrompt) {
		newBuffer = strings.TrimSuffix(buffer, m.ReplacePrompt) + cand
	} else {
		newBuffer = buffer + cand
	}
	return newBuffer, m.ExecOnProm
}
