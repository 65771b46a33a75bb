package completion

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/epicfilemcnulty/lilush-core/internal/history"
)

// StaticSource serves a fixed candidate list (spec.md §4.E step 2's
// "builtins (static list)" and "Lua-keyword list" sources).
type StaticSource struct {
	name  string
	items []string
}

// NewStaticSource builds a StaticSource over a fixed, sorted item list.
func NewStaticSource(name string, items []string) *StaticSource {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return &StaticSource{name: name, items: sorted}
}

func (s *StaticSource) Name() string  { return s.name }
func (s *StaticSource) Update() error { return nil }

func (s *StaticSource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	prefix := lastToken(tokens, buffer)
	var cands []string
	for _, item := range s.items {
		if strings.HasPrefix(item, prefix) {
			cands = append(cands, item)
		}
	}
	return cands, metaFor(s.name, len(cands))
}

// PathSource catalogs executables found on $PATH, refreshed by Update(),
// per spec.md §4.E step 2 ("$PATH executables (cached per update())").
type PathSource struct {
	execs []string
}

// NewPathSource builds an empty PathSource; call Update() to populate it.
func NewPathSource() *PathSource { return &PathSource{} }

func (s *PathSource) Name() string { return "path" }

func (s *PathSource) Update() error {
	var execs []string
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || info.Mode()&0111 == 0 {
				continue
			}
			execs = append(execs, e.Name())
		}
	}
	sort.Strings(execs)
	s.execs = dedup(execs)
	return nil
}

func (s *PathSource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	if len(tokens) > 1 || (len(tokens) == 1 && strings.HasSuffix(buffer, " ")) {
		return nil, nil // only the command position completes from $PATH
	}
	prefix := lastToken(tokens, buffer)
	var cands []string
	for _, exe := range s.execs {
		if strings.HasPrefix(exe, prefix) {
			cands = append(cands, exe)
		}
	}
	return cands, metaFor(s.Name(), len(cands))
}

// EnvSource completes `$VARNAME`-style tokens from the process environment.
type EnvSource struct{}

func (EnvSource) Name() string  { return "env" }
func (EnvSource) Update() error { return nil }

func (EnvSource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	last := lastToken(tokens, buffer)
	if !strings.HasPrefix(last, "$") {
		return nil, nil
	}
	prefix := strings.TrimPrefix(last, "$")
	var cands []string
	for _, kv := range os.Environ() {
		name := kv[:strings.IndexByte(kv, '=')]
		if strings.HasPrefix(name, prefix) {
			cands = append(cands, "$"+name)
		}
	}
	sort.Strings(cands)
	return cands, metaFor("env", len(cands))
}

// PathCompletionSource completes filesystem paths, quoting entries whose
// names contain spaces, per spec.md §4.E step 2 ("filesystem paths (with
// quoting)").
type PathCompletionSource struct{}

func (PathCompletionSource) Name() string  { return "fs" }
func (PathCompletionSource) Update() error { return nil }

func (PathCompletionSource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	last := lastToken(tokens, buffer)
	dir, prefix := filepath.Split(last)
	lookDir := dir
	if lookDir == "" {
		lookDir = "."
	}
	entries, err := os.ReadDir(lookDir)
	if err != nil {
		return nil, nil
	}
	var cands []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		full := dir + name
		if e.IsDir() {
			full += "/"
		}
		if strings.ContainsAny(full, " \t") {
			full = "\"" + full + "\""
		}
		cands = append(cands, full)
	}
	sort.Strings(cands)
	return cands, metaFor("fs", len(cands))
}

// HistorySource completes from recent command history via the §4.D
// fuzzy Search, wired to the history package.
type HistorySource struct {
	History *history.History
	Cwd     string
}

func (s *HistorySource) Name() string  { return "history" }
func (s *HistorySource) Update() error { return nil }

func (s *HistorySource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	if s.History == nil || len(tokens) == 0 {
		return nil, nil
	}
	cands := s.History.Search(tokens, s.Cwd)
	return cands, metaFor("history", len(cands))
}

// DirHistorySource completes directories from history's cwd log, for
// spec.md §4.E step 2's "dir-history candidates (from D)".
type DirHistorySource struct {
	History *history.History
}

func (s *DirHistorySource) Name() string  { return "dirhistory" }
func (s *DirHistorySource) Update() error { return nil }

func (s *DirHistorySource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	if s.History == nil || len(tokens) == 0 {
		return nil, nil
	}
	cands := s.History.DirSearch(tokens)
	return cands, metaFor("dirhistory", len(cands))
}

// SnippetSource completes from a store-backed snippet catalog
// (spec.md §4.E step 2's "snippets (from store)"). The store is an
// opaque string->string lookup: snippet name -> expansion text.
type SnippetStore interface {
	Snippets() map[string]string
}

type SnippetSource struct{ Store SnippetStore }

func (s *SnippetSource) Name() string  { return "snippet" }
func (s *SnippetSource) Update() error { return nil }

func (s *SnippetSource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	if s.Store == nil {
		return nil, nil
	}
	prefix := lastToken(tokens, buffer)
	var names []string
	for name := range s.Store.Snippets() {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	snippets := s.Store.Snippets()
	cands := make([]string, len(names))
	meta := make([]CandidateMeta, len(names))
	for i, name := range names {
		cands[i] = snippets[name]
		meta[i] = CandidateMeta{SourceName: "snippet", ReduceSpaces: true}
	}
	return cands, meta
}

func lastToken(tokens []string, buffer string) string {
	if len(tokens) == 0 {
		return ""
	}
	if strings.HasSuffix(buffer, " ") {
		return ""
	}
	return tokens[len(tokens)-1]
}

func metaFor(source string, n int) []CandidateMeta {
	if n == 0 {
		return nil
	}
	meta := make([]CandidateMeta, n)
	for i := range meta {
		meta[i] = CandidateMeta{SourceName: source}
	}
	return meta
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	var prev string
	first := true
	for _, s := range sorted {
		if first || s != prev {
			out = append(out, s)
			prev = s
			first = false
		}
	}
	return out
}
