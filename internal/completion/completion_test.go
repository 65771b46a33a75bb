package completion

import (
	"reflect"
	"testing"
)

func TestTokenizeSplitsOnWhitespace(t *testing.T) {
	got := Tokenize("ls -la /tmp")
	want := []string{"ls", "-la", "/tmp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenizeHonorsQuotedSpans(t *testing.T) {
	got := Tokenize(`echo "hello world" there`)
	want := []string{"echo", "hello world", "there"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

type fakeSource struct {
	name  string
	cands []string
}

func (f *fakeSource) Name() string  { return f.name }
func (f *fakeSource) Update() error { return nil }
func (f *fakeSource) Search(tokens []string, buffer string) ([]string, []CandidateMeta) {
	meta := make([]CandidateMeta, len(f.cands))
	for i := range meta {
		meta[i] = CandidateMeta{SourceName: f.name}
	}
	return f.cands, meta
}

func TestSearchMergesPreservingSourceOrder(t *testing.T) {
	c := New(nil, nil)
	c.AddSource(&fakeSource{name: "a", cands: []string{"a1", "a2"}})
	c.AddSource(&fakeSource{name: "b", cands: []string{"b1"}})

	if !c.Search("x", nil) {
		t.Fatalf("Search should report candidates found")
	}
	want := []string{"a1", "a2", "b1"}
	for i, w := range want {
		if c.candidates[i] != w {
			t.Errorf("candidates[%d] = %q, want %q", i, c.candidates[i], w)
		}
	}
	if c.Chosen() != 1 {
		t.Errorf("Chosen() = %d, want 1", c.Chosen())
	}
}

func TestSearchNoCandidatesFlushes(t *testing.T) {
	c := New(nil, nil)
	c.AddSource(&fakeSource{name: "a"})
	c.Search("ignored", nil)
	c.candidates = []string{"stale"}

	if c.Search("x", nil) {
		t.Fatalf("Search should report false when nothing matched")
	}
	if !c.Empty() {
		t.Errorf("Empty() should be true after a flush")
	}
}

func TestGetReturnsEmptyStringWhenEmpty(t *testing.T) {
	c := New(nil, nil)
	if got := c.Get(false); got != "" {
		t.Errorf("Get() = %q, want empty", got)
	}
}

func TestScrollIsCircular(t *testing.T) {
	c := New(nil, nil)
	c.AddSource(&fakeSource{name: "a", cands: []string{"x", "y", "z"}})
	c.Search("q", nil)

	c.ScrollDown()
	c.ScrollDown()
	if got := c.Get(true); got != "z" {
		t.Fatalf("Get() = %q, want z", got)
	}
	c.ScrollDown()
	if got := c.Get(true); got != "x" {
		t.Errorf("ScrollDown past the end should wrap to x, got %q", got)
	}
	c.ScrollUp()
	c.ScrollUp()
	if got := c.Get(true); got != "y" {
		t.Errorf("ScrollUp past the start should wrap to y, got %q", got)
	}
}

func TestPromoteAppendsWhenNoReplacePrompt(t *testing.T) {
	c := New(nil, nil)
	c.candidates = []string{"world"}
	c.meta = []CandidateMeta{{}}
	c.chosen = 1

	got, exec := c.Promote("hello ")
	if got != "hello world" || exec {
		t.Errorf("Promote = %q, %v, want %q, false", got, exec, "hello world")
	}
}

func TestPromoteReplacesPrefixWhenSet(t *testing.T) {
	c := New(nil, nil)
	c.candidates = []string{"git status"}
	c.meta = []CandidateMeta{{HasReplace: true, ReplacePrompt: "git st"}}
	c.chosen = 1

	got, _ := c.Promote("git st")
	if got != "git status" {
		t.Errorf("Promote = %q, want %q", got, "git status")
	}
}

func TestPromoteExecOnPromSignalsImmediateSubmit(t *testing.T) {
	c := New(nil, nil)
	c.candidates = []string{"ls"}
	c.meta = []CandidateMeta{{ExecOnProm: true}}
	c.chosen = 1

	_, exec := c.Promote("")
	if !exec {
		t.Errorf("ExecOnProm candidate should request immediate submission")
	}
}

func TestPromoteTrimAndReduceSpaces(t *testing.T) {
	c := New(nil, nil)
	c.candidates = []string{"   a   b   c"}
	c.meta = []CandidateMeta{{TrimPromotion: true, ReduceSpaces: true}}
	c.chosen = 1

	got, _ := c.Promote("")
	if got != "a b c" {
		t.Errorf("Promote = %q, want %q", got, "a b c")
	}
}

func TestStaticSourceFiltersByPrefix(t *testing.T) {
	s := NewStaticSource("builtin", []string{"cd", "cat", "echo"})
	cands, meta := s.Search([]string{"c"}, "c")
	if len(cands) != 2 || len(meta) != 2 {
		t.Fatalf("got %v", cands)
	}
	if cands[0] != "cat" || cands[1] != "cd" {
		t.Errorf("got %v, want sorted [cat cd]", cands)
	}
}

func TestEnvSourceOnlyMatchesDollarPrefix(t *testing.T) {
	s := EnvSource{}
	if cands, _ := s.Search([]string{"foo"}, "foo"); cands != nil {
		t.Errorf("non-$ token should not trigger env completion, got %v", cands)
	}
}
