package style

import (
	"strings"
	"testing"
)

func TestCascadeOverridesLeafOverBase(t *testing.T) {
	sheet := New()
	sheet.Put("prompt", newProps().SetFg(Named("red")).SetAttr(Bold))
	sheet.Put("prompt.error", newProps().SetFg(Named("blue")))

	resolved := sheet.Resolve("prompt.error")
	if resolved.Fg == nil || resolved.Fg.Named != "blue" {
		t.Fatalf("Fg = %+v, want blue (leaf override)", resolved.Fg)
	}
	if !resolved.Attrs[Bold] {
		t.Errorf("Bold attribute from base should survive cascade")
	}
}

func TestResolveAnyIsOrderStableWithInheritance(t *testing.T) {
	sheet := New()
	sheet.Put("a", newProps().SetFg(Named("red")))
	sheet.Put("a.b", newProps().SetAttr(Bold))

	direct := sheet.Resolve("a.b")
	viaAny := sheet.ResolveAny([]string{"a", "a.b"})

	if direct.Fg == nil || viaAny.Fg == nil || direct.Fg.Named != viaAny.Fg.Named {
		t.Errorf("Resolve and ResolveAny disagree on Fg: %+v vs %+v", direct.Fg, viaAny.Fg)
	}
	if direct.Attrs[Bold] != viaAny.Attrs[Bold] {
		t.Errorf("Resolve and ResolveAny disagree on Bold")
	}
}

func TestResetAttrClearsInheritedAttrs(t *testing.T) {
	sheet := New()
	sheet.Put("a", newProps().SetAttr(Bold).SetAttr(Italic))
	sheet.Put("a.b", newProps().SetAttr(Reset).SetAttr(Dim))

	resolved := sheet.Resolve("a.b")
	if resolved.Attrs[Bold] || resolved.Attrs[Italic] {
		t.Errorf("Reset should clear inherited attrs, got %+v", resolved.Attrs)
	}
	if !resolved.Attrs[Dim] {
		t.Errorf("Dim set alongside Reset should still apply")
	}
}

func TestApplyAbsoluteWidthPadsAndAligns(t *testing.T) {
	e := NewEngine(New(), 80, nil)
	props := newProps().SetW(AbsWidth(10)).SetAlign(AlignRight)
	out := e.ApplyProps(props, "hi", 0, 0)
	inner := strings.TrimSuffix(out, "\x1b[0m")
	if inner != "        hi" {
		t.Errorf("got %q, want 8 spaces + hi", inner)
	}
}

func TestApplyFractionalWidthIsRelativeToParentWidth(t *testing.T) {
	e := NewEngine(New(), 100, nil)
	props := newProps().SetW(FracWidth(0.5)).SetAlign(AlignLeft)
	out := e.ApplyProps(props, "x", 0, 40)
	inner := strings.TrimSuffix(out, "\x1b[0m")
	if len([]rune(inner)) != 20 {
		t.Errorf("got len %d, want 20 (half of parent width 40, not term width 100)", len([]rune(inner)))
	}
}

func TestApplyFractionalWidthFallsBackToTermColsWithoutParent(t *testing.T) {
	e := NewEngine(New(), 100, nil)
	props := newProps().SetW(FracWidth(0.5)).SetAlign(AlignLeft)
	out := e.ApplyProps(props, "x", 0, 0)
	inner := strings.TrimSuffix(out, "\x1b[0m")
	if len([]rune(inner)) != 50 {
		t.Errorf("got len %d, want 50 (half of TermCols, no styled parent)", len([]rune(inner)))
	}
}

func TestApplyZeroWidthClipsToRemainingColumns(t *testing.T) {
	e := NewEngine(New(), 10, nil)
	props := newProps().SetClip(1)
	out := e.ApplyProps(props, "abcdefghij", 4, 0)
	inner := strings.TrimSuffix(out, "\x1b[0m")
	if len([]rune(inner)) != 6 {
		t.Errorf("got %q (len %d), want clipped to 6 cols", inner, len([]rune(inner)))
	}
}

func TestApplyBeforeAfterWrapContent(t *testing.T) {
	e := NewEngine(New(), 80, nil)
	props := newProps().SetBefore("[").SetAfter("]")
	out := e.ApplyProps(props, "x", 0, 0)
	if !strings.Contains(out, "[x]") {
		t.Errorf("got %q, want to contain [x]", out)
	}
}

func TestApplyEmitsColorSGR(t *testing.T) {
	e := NewEngine(New(), 80, nil)
	props := newProps().SetFg(Named("red")).SetBg(Named("blue"))
	out := e.ApplyProps(props, "x", 0, 0)
	if !strings.Contains(out, "31") || !strings.Contains(out, "44") {
		t.Errorf("got %q, want fg=31 and bg=44 present", out)
	}
}

func TestRGBRejectsInvalidHex(t *testing.T) {
	if _, err := RGB("not-a-color"); err == nil {
		t.Errorf("RGB(invalid) should return an error")
	}
}

func TestRGBRoundtripsPrimaryColor(t *testing.T) {
	c, err := RGB("#ff0000")
	if err != nil {
		t.Fatalf("RGB: %v", err)
	}
	if c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("got %+v, want pure red", c)
	}
}

func TestCodepointLenCountsRunesNotBytes(t *testing.T) {
	if got := CodepointLen("héllo"); got != 5 {
		t.Errorf("CodepointLen(héllo) = %d, want 5", got)
	}
}

func TestRuneWidthDisplayLenCountsWideGlyphsAsTwoColumns(t *testing.T) {
	if got := RuneWidthDisplayLen("ab"); got != 2 {
		t.Errorf("RuneWidthDisplayLen(ab) = %d, want 2", got)
	}
	// 全角 ("full-width") is two codepoints, each two columns wide.
	if got := RuneWidthDisplayLen("全角"); got != 4 {
		t.Errorf("RuneWidthDisplayLen(全角) = %d, want 4", got)
	}
	if CodepointLen("全角") == RuneWidthDisplayLen("全角") {
		t.Errorf("RuneWidthDisplayLen should diverge from CodepointLen for wide glyphs")
	}
}

func TestEngineUsesInjectedDisplayLenForAlignment(t *testing.T) {
	e := NewEngine(New(), 80, RuneWidthDisplayLen)
	props := newProps().SetW(AbsWidth(12)).SetAlign(AlignLeft)
	out := e.ApplyProps(props, "全角", 0, 0)
	inner := strings.TrimSuffix(out, "\x1b[0m")
	trailing := len([]rune(inner)) - len([]rune(strings.TrimRight(inner, " ")))
	// "全角" occupies 4 display columns (2 codepoints x 2 cols each); a
	// 12-wide left-aligned field pads with 8 spaces when width accounting
	// uses display width instead of a codepoint count (which would pad
	// with 10).
	if trailing != 8 {
		t.Errorf("got %d trailing spaces, want 8 (12 - 4 display columns for 全角)", trailing)
	}
}
