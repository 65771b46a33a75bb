package keys

import (
	"sort"
	"strings"
)

// modifierNames lists modifiers in the canonical join order used by
// SimpleGet / ModsToString.
var modifierNames = []struct {
	bit  Modifier
	name string
}{
	{Ctrl, "CTRL"},
	{Alt, "ALT"},
	{Shift, "Shift"},
	{Super, "SUPER"},
	{Hyper, "HYPER"},
	{Meta, "META"},
	{CapsLock, "CAPS_LOCK"},
	{NumLock, "NUM_LOCK"},
}

// ModsToString joins the set modifier names with "+", e.g. "CTRL+Shift".
func ModsToString(m Modifier) string {
	var parts []string
	for _, mn := range modifierNames {
		if m&mn.bit != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, "+")
}

// StringToMods parses a "CTRL+Shift"-style string back into a Modifier
// bitfield, case-insensitively and in any order.
func StringToMods(s string) Modifier {
	if s == "" {
		return 0
	}
	var m Modifier
	for _, tok := range strings.Split(s, "+") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		for _, mn := range modifierNames {
			if strings.ToUpper(mn.name) == tok {
				m |= mn.bit
			}
		}
	}
	return m
}

// Canonical re-renders a modifier string in canonical name/order form, for
// the roundtrip property in spec.md §8:
// mods_to_string(string_to_mods(s)) == canonical(s).
func Canonical(s string) string { return ModsToString(StringToMods(s)) }

// SimpleGet collapses a KeyEvent to a single display string per §4.C:
// printable characters pass through (preferring the shifted variant),
// anything with modifiers is prefixed by the joined modifier names.
func SimpleGet(ev *KeyEvent) string {
	if ev == nil {
		return ""
	}
	symbol := ev.Code
	if ev.Shifted != "" {
		symbol = ev.Shifted
	}
	mods := ModsToString(ev.Mods)
	if mods == "" {
		return symbol
	}
	return mods + "+" + symbol
}

// sortedModNames is an unexported helper for tests that want a stable
// enumeration of all recognized modifier names.
func sortedModNames() []string {
	names := make([]string, len(modifierNames))
	for i, mn := range modifierNames {
		names[i] = mn.name
	}
	sort.Strings(names)
	return names
}
