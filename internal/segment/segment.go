// Package segment splits raw sub-area names into an area name and an
// optional section name ("chome" block).
//
// Sibling records sharing a prefecture, city and sub-area bucket (the code
// without its two section digits) are segmented together: their longest
// common prefix is the area name and whatever follows it is the section.
// When siblings share nothing, a trailing kanji-numeral chome token is split
// off instead.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/jisarea/internal/jiscode"
)

// ChomeMarker terminates a section token such as "三丁目".
const ChomeMarker = "丁目"

// kanjiNumerals are the glyphs allowed before ChomeMarker.
const kanjiNumerals = "一二三四五六七八九十百"

// Leaf is the part of a validated record the segmenter needs.
type Leaf struct {
	Prefecture int
	City       int
	Code       int // 6-digit sub-area code
	Name       string
}

// Split is the segmentation result for one leaf.
type Split struct {
	Area    string
	Section string // empty when the leaf has no section
}

// HasSection reports whether the leaf carries a section.
func (s Split) HasSection() bool {
	return s.Section != ""
}

type groupKey struct {
	prefecture int
	city       int
	bucket     int
}

func keyOf(l Leaf) groupKey {
	return groupKey{prefecture: l.Prefecture, city: l.City, bucket: jiscode.Bucket(l.Code)}
}

// Segment returns one Split per leaf, in the same order as leaves.
func Segment(leaves []Leaf) []Split {
	groups := make(map[groupKey][]int)
	for i, l := range leaves {
		k := keyOf(l)
		groups[k] = append(groups[k], i)
	}

	splits := make([]Split, len(leaves))
	names := make([]string, 0, 16)
	for _, members := range groups {
		names = names[:0]
		for _, i := range members {
			names = append(names, leaves[i].Name)
		}
		prefix := strings.TrimRightFunc(LongestCommonPrefix(names), unicode.IsSpace)

		for _, i := range members {
			splits[i] = splitLeaf(leaves[i], prefix)
		}
	}
	return splits
}

func splitLeaf(l Leaf, prefix string) Split {
	noSection := jiscode.SectionDigits(l.Code) == 0

	if prefix != "" {
		if noSection {
			return Split{Area: prefix}
		}
		rest := strings.TrimSpace(strings.TrimPrefix(l.Name, prefix))
		return Split{Area: prefix, Section: rest}
	}

	if noSection {
		return Split{Area: l.Name}
	}
	if area, section, ok := SplitChome(l.Name); ok {
		return Split{Area: area, Section: section}
	}
	return Split{Area: l.Name}
}

// LongestCommonPrefix returns the longest rune-wise common prefix of names.
func LongestCommonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}

	prefix := names[0]
	for _, s := range names[1:] {
		n := 0
		for n < len(prefix) && n < len(s) {
			_, w1 := utf8.DecodeRuneInString(prefix[n:])
			_, w2 := utf8.DecodeRuneInString(s[n:])
			if w1 != w2 || prefix[n:n+w1] != s[n:n+w2] {
				break
			}
			n += w1
		}
		prefix = prefix[:n]
		if prefix == "" {
			break
		}
	}
	return prefix
}

// SplitChome splits a trailing run of kanji numerals followed by ChomeMarker
// off name. ok is false when name has no such suffix.
func SplitChome(name string) (area, section string, ok bool) {
	rest, found := strings.CutSuffix(name, ChomeMarker)
	if !found {
		return name, "", false
	}

	i := len(rest)
	for i > 0 {
		r, w := utf8.DecodeLastRuneInString(rest[:i])
		if !strings.ContainsRune(kanjiNumerals, r) {
			break
		}
		i -= w
	}
	if i == len(rest) {
		return name, "", false
	}
	return name[:i], name[i:], true
}
