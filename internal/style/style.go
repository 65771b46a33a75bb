// Package style implements the Terminal Style Sheet (TSS): a cascade of
// dotted-selector style properties resolved into ANSI escape sequences,
// per spec.md §3/§4.B.
package style

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lucasb-eyer/go-colorful"
)

// Align is the text-alignment axis of StyleProps.
type Align int

const (
	AlignNone Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Attr is one of the cascade-union-able text attributes.
type Attr string

const (
	Bold       Attr = "bold"
	Italic     Attr = "italic"
	Dim        Attr = "dim"
	Inverted   Attr = "inverted"
	Underlined Attr = "underlined"
	Reset      Attr = "reset"
)

// ColorKind distinguishes the three color representations spec.md §3
// allows.
type ColorKind int

const (
	ColorNone ColorKind = iota
	ColorNamed
	ColorIndexed
	ColorRGB
)

// Color is a cascade-mergeable color value.
type Color struct {
	Kind  ColorKind
	Named string // one of the 8 basic ANSI names
	Index uint8  // 8-bit palette index
	R, G, B uint8
}

var basicColorCodes = map[string]int{
	"black": 0, "red": 1, "green": 2, "yellow": 3,
	"blue": 4, "magenta": 5, "cyan": 6, "white": 7,
}

// RGB builds a Color from a "#RRGGBB" hex string, using go-colorful for
// parsing so malformed input is rejected the same way the rest of the
// corpus's color pipelines (lipgloss/go-colorful) reject it.
func RGB(hex string) (Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("style: invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return Color{Kind: ColorRGB, R: r, G: g, B: b}, nil
}

// Indexed builds an 8-bit palette Color.
func Indexed(i uint8) Color { return Color{Kind: ColorIndexed, Index: i} }

// Named builds a basic-named Color ("red", "blue", ...).
func Named(name string) Color { return Color{Kind: ColorNamed, Named: strings.ToLower(name)} }

// sgr renders the foreground (base 30) or background (base 40) SGR
// parameter list for this color, per spec.md §6.
func (c Color) sgr(base int) string {
	switch c.Kind {
	case ColorNamed:
		if code, ok := basicColorCodes[c.Named]; ok {
			return strconv.Itoa(base + code)
		}
		return ""
	case ColorIndexed:
		family := 38
		if base == 40 {
			family = 48
		}
		return fmt.Sprintf("%d;5;%d", family, c.Index)
	case ColorRGB:
		family := 38
		if base == 40 {
			family = 48
		}
		return fmt.Sprintf("%d;2;%d;%d;%d", family, c.R, c.G, c.B)
	}
	return ""
}

// Width is the TSS `w` property: an int ≥1 (literal codepoints), a
// fraction in (0,1) (relative to the cascade parent's resolved width), or
// the zero value (unspecified — use terminal column count).
type Width struct {
	Abs  int
	Frac float64
}

func AbsWidth(n int) Width    { return Width{Abs: n} }
func FracWidth(f float64) Width { return Width{Frac: f} }

// StyleProps is one node's resolved or partial style, per spec.md §3.
type StyleProps struct {
	Fg, Bg  *Color
	Attrs   map[Attr]bool
	Align   Align
	Clip    int
	Indent  int
	W       Width
	Before  string
	After   string
	Content string
	Fill    bool

	set map[string]bool // which scalar fields were explicitly set, for cascade override semantics
}

func newProps() *StyleProps {
	return &StyleProps{Attrs: map[Attr]bool{}, set: map[string]bool{}}
}

// mark records that field was explicitly set on this node, so Merge can
// distinguish "override with zero value" from "inherit".
func (p *StyleProps) mark(field string) {
	if p.set == nil {
		p.set = map[string]bool{}
	}
	p.set[field] = true
}

func (p *StyleProps) isSet(field string) bool { return p.set != nil && p.set[field] }

// SetFg / SetBg / SetAlign / SetClip / SetIndent / SetW / SetBefore /
// SetAfter / SetContent / SetFill are fluent setters that also mark the
// field for cascade overriding.
func (p *StyleProps) SetFg(c Color) *StyleProps      { p.Fg = &c; p.mark("fg"); return p }
func (p *StyleProps) SetBg(c Color) *StyleProps      { p.Bg = &c; p.mark("bg"); return p }
func (p *StyleProps) SetAlign(a Align) *StyleProps   { p.Align = a; p.mark("align"); return p }
func (p *StyleProps) SetClip(n int) *StyleProps      { p.Clip = n; p.mark("clip"); return p }
func (p *StyleProps) SetIndent(n int) *StyleProps    { p.Indent = n; p.mark("indent"); return p }
func (p *StyleProps) SetW(w Width) *StyleProps       { p.W = w; p.mark("w"); return p }
func (p *StyleProps) SetBefore(s string) *StyleProps { p.Before = s; p.mark("before"); return p }
func (p *StyleProps) SetAfter(s string) *StyleProps  { p.After = s; p.mark("after"); return p }
func (p *StyleProps) SetContent(s string) *StyleProps {
	p.Content = s
	p.mark("content")
	return p
}
func (p *StyleProps) SetFill(b bool) *StyleProps { p.Fill = b; p.mark("fill"); return p }

// SetAttr adds an attribute to the union-able `s` set. Reset clears it and
// stays recorded, so the cascade also drops attributes inherited from a
// parent selector.
func (p *StyleProps) SetAttr(a Attr) *StyleProps {
	if a == Reset {
		p.Attrs = map[Attr]bool{Reset: true}
		return p
	}
	p.Attrs[a] = true
	return p
}

// merge applies child over base following spec.md §3's cascade rule:
// `s` unions (Reset clears first), other scalars override when set.
func merge(base, child *StyleProps) *StyleProps {
	out := newProps()
	for a := range base.Attrs {
		out.Attrs[a] = true
	}
	if child.Attrs[Reset] {
		out.Attrs = map[Attr]bool{}
	}
	for a := range child.Attrs {
		if a != Reset {
			out.Attrs[a] = true
		}
	}

	out.Fg, out.Bg = base.Fg, base.Bg
	out.Align, out.Clip, out.Indent, out.W = base.Align, base.Clip, base.Indent, base.W
	out.Before, out.After, out.Content, out.Fill = base.Before, base.After, base.Content, base.Fill

	for _, f := range []string{"fg", "bg", "align", "clip", "indent", "w", "before", "after", "content", "fill"} {
		if base.isSet(f) {
			out.mark(f)
		}
	}

	if child.isSet("fg") {
		out.Fg, out.Bg = child.Fg, out.Bg
		out.mark("fg")
	}
	if child.isSet("bg") {
		out.Bg = child.Bg
		out.mark("bg")
	}
	if child.isSet("align") {
		out.Align = child.Align
		out.mark("align")
	}
	if child.isSet("clip") {
		out.Clip = child.Clip
		out.mark("clip")
	}
	if child.isSet("indent") {
		out.Indent = child.Indent
		out.mark("indent")
	}
	if child.isSet("w") {
		out.W = child.W
		out.mark("w")
	}
	if child.isSet("before") {
		out.Before = child.Before
		out.mark("before")
	}
	if child.isSet("after") {
		out.After = child.After
		out.mark("after")
	}
	if child.isSet("content") {
		out.Content = child.Content
		out.mark("content")
	}
	if child.isSet("fill") {
		out.Fill = child.Fill
		out.mark("fill")
	}
	return out
}

// StyleSheet is a nested mapping from dotted selectors to StyleProps.
type StyleSheet struct {
	nodes map[string]*StyleProps
}

// New returns an empty StyleSheet.
func New() *StyleSheet { return &StyleSheet{nodes: map[string]*StyleProps{}} }

// Put sets the (unmerged) StyleProps for one exact selector.
func (s *StyleSheet) Put(selector string, p *StyleProps) { s.nodes[selector] = p }

// Resolve cascades `a`, then `a.b`, then `a.b.c` for a dotted selector,
// merging in that order per spec.md §3.
func (s *StyleSheet) Resolve(selector string) *StyleProps {
	parts := strings.Split(selector, ".")
	acc := newProps()
	prefix := ""
	for i, part := range parts {
		if i == 0 {
			prefix = part
		} else {
			prefix = prefix + "." + part
		}
		if p, ok := s.nodes[prefix]; ok {
			acc = merge(acc, p)
		}
	}
	return acc
}

// ResolveAny cascades each selector in order and merges their resolved
// results, left to right. Order-stable: ResolveAny(["a","a.b"]) ==
// Resolve("a.b") when a.b inherits from a (spec.md §8).
func (s *StyleSheet) ResolveAny(selectors []string) *StyleProps {
	acc := newProps()
	for _, sel := range selectors {
		acc = merge(acc, s.Resolve(sel))
	}
	return acc
}

// DisplayLenFunc computes the on-screen column width of a string. The
// default (CodepointLen) is a fail-closed codepoint count per §4.B;
// callers needing East-Asian/emoji-aware widths supply RuneWidthDisplayLen
// or their own hook.
type DisplayLenFunc func(string) int

// CodepointLen is the default, fail-closed DisplayLenFunc.
func CodepointLen(s string) int { return utf8.RuneCountInString(s) }

// Engine applies StyleSheet cascades against a terminal width, per
// spec.md §4.B.
type Engine struct {
	Sheet       *StyleSheet
	TermCols    int
	DisplayLen  DisplayLenFunc
}

// NewEngine builds an Engine. If displayLen is nil, CodepointLen is used.
func NewEngine(sheet *StyleSheet, termCols int, displayLen DisplayLenFunc) *Engine {
	if displayLen == nil {
		displayLen = CodepointLen
	}
	return &Engine{Sheet: sheet, TermCols: termCols, DisplayLen: displayLen}
}

// Apply resolves selector(s) against content and renders the final ANSI
// string, following the seven-step algorithm in spec.md §4.B. parentWidth
// is the cascade parent's own resolved width (0 if this selector has no
// styled parent), used to resolve a fractional `w`.
func (e *Engine) Apply(selectors []string, content string, columnHint, parentWidth int) string {
	props := e.Sheet.ResolveAny(selectors)
	return e.ApplyProps(props, content, columnHint, parentWidth)
}

// ApplyProps is Apply for an already-resolved StyleProps (used by tests
// and by callers that resolve once and apply many times).
func (e *Engine) ApplyProps(props *StyleProps, content string, columnHint, parentWidth int) string {
	if content == "" && props.Content != "" {
		content = props.Content
	}

	if props.Indent > 0 {
		content = strings.Repeat(" ", props.Indent) + content
	}

	resolvedW := e.resolveWidth(props.W, parentWidth)

	switch {
	case resolvedW > 0:
		if props.Fill {
			content = e.tile(content, resolvedW)
		}
		content = e.align(content, props.Align, resolvedW)
		if e.DisplayLen(content) > resolvedW && props.Clip > 0 {
			content = e.clip(content, resolvedW, props.Clip)
		}
	case resolvedW == 0:
		avail := e.TermCols - columnHint
		if avail > 0 && e.DisplayLen(content) > avail && props.Clip >= 0 {
			content = e.clip(content, avail, props.Clip)
		}
	}

	content = props.Before + content + props.After

	var sb strings.Builder
	sb.WriteString(e.sgrAttrs(props))
	if c := e.sgrColors(props); c != "" {
		sb.WriteString(c)
	}
	sb.WriteString(content)
	sb.WriteString("\x1b[0m")
	return sb.String()
}

// resolveWidth turns a Width value into an absolute column count. A
// fractional w is relative to the cascade parent's own resolved width;
// when there is no styled parent (parentWidth <= 0) it falls back to the
// terminal column count, per spec.md §4.B "Width resolution".
func (e *Engine) resolveWidth(w Width, parentWidth int) int {
	if w.Abs > 0 {
		return w.Abs
	}
	if w.Frac > 0 && w.Frac < 1 {
		parent := parentWidth
		if parent <= 0 {
			parent = e.TermCols
		}
		return int(float64(parent) * w.Frac)
	}
	return 0
}

func (e *Engine) tile(content string, width int) string {
	if content == "" {
		return strings.Repeat(" ", width)
	}
	var sb strings.Builder
	for e.DisplayLen(sb.String()) < width {
		sb.WriteString(content)
	}
	return e.clip(sb.String(), width, 0)
}

func (e *Engine) align(content string, a Align, width int) string {
	l := e.DisplayLen(content)
	if l >= width {
		return content
	}
	pad := width - l
	switch a {
	case AlignRight:
		return strings.Repeat(" ", pad) + content
	case AlignCenter:
		left := pad / 2
		right := pad - left
		return strings.Repeat(" ", left) + content + strings.Repeat(" ", right)
	default: // AlignLeft, AlignNone
		return content + strings.Repeat(" ", pad)
	}
}

// clip truncates content to width, preserving `ellipsisLen` codepoints
// from the tail (spec.md §4.B step 4/5).
func (e *Engine) clip(content string, width, ellipsisLen int) string {
	runes := []rune(content)
	if len(runes) <= width {
		return content
	}
	if ellipsisLen <= 0 || ellipsisLen >= width {
		return string(runes[:width])
	}
	headLen := width - ellipsisLen
	return string(runes[:headLen]) + string(runes[len(runes)-ellipsisLen:])
}

func (e *Engine) sgrAttrs(p *StyleProps) string {
	if len(p.Attrs) == 0 {
		return ""
	}
	codes := map[Attr]int{Bold: 1, Dim: 2, Italic: 3, Underlined: 4, Inverted: 7}
	var parts []string
	for a := range p.Attrs {
		if c, ok := codes[a]; ok {
			parts = append(parts, strconv.Itoa(c))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(parts, ";") + "m"
}

func (e *Engine) sgrColors(p *StyleProps) string {
	var parts []string
	if p.Fg != nil {
		if s := p.Fg.sgr(30); s != "" {
			parts = append(parts, s)
		}
	}
	if p.Bg != nil {
		if s := p.Bg.sgr(40); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(parts, ";") + "m"
}

// DefaultANSIPalette lists hex values for the 16 basic ANSI colors,
// grounded on Gaurav-Gosain-tuios/internal/theme/theme.go's GetANSIPalette
// fallback. Named colors render as SGR codes 30-37/40-47 and do not read
// this table.
var DefaultANSIPalette = [16]string{
	"#000000", "#cd0000", "#00cd00", "#cdcd00",
	"#0000ee", "#cd00cd", "#00cdcd", "#e5e5e5",
	"#7f7f7f", "#ff0000", "#00ff00", "#ffff00",
	"#5c5cff", "#ff00ff", "#00ffff", "#ffffff",
}
