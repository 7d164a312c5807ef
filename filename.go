package upload // import "blitznote.com/src/png.upload"

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// AlwaysRejectRunes contains runes that are not safe to use with network shares.
	//
	// Path separators are among them, because the filename becomes
	// the last element of the destination path verbatim.
	AlwaysRejectRunes = `"*:<>?|\/`

	runeSpatium = '\u2009'
)

// Not all runes in unicode.PrintRanges are suitable for filenames.
// They are collected here.
var excludedRunes = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x2028, 0x202f, 1}, // new line, paragraph etc.
		{0xfff0, 0xffff, 1}, // specials, and invalid
	},
	LatinOffset: 0,
}

// IsAcceptableFilename is used to enforce filenames in wanted alphabet(s).
// Setting 'reduceAcceptableRunesTo' reduces the supremum unicode.PrintRanges.
//
// A string with runes other than U+0020 (space) or U+2009 (spatium)
// representing space will be rejected, as will be "." and "..".
func IsAcceptableFilename(s string, reduceAcceptableRunesTo []*unicode.RangeTable,
	enforceForm *norm.Form) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if enforceForm != nil && !enforceForm.IsNormalString(s) {
		return false
	}

	if reduceAcceptableRunesTo != nil {
		for _, r := range s {
			if !unicode.In(r, reduceAcceptableRunesTo...) {
				return false
			}
		}
	}

	for _, r := range s {
		if uint32(r) <= unicode.MaxLatin1 && strings.ContainsRune(AlwaysRejectRunes, r) {
			return false
		}
		if r == runeSpatium {
			continue
		}
		if unicode.Is(excludedRunes, r) ||
			!unicode.IsPrint(r) { // this takes care of the "spaces" as well
			return false
		}
	}

	return true
}

// Extension returns the lower-cased extension of a filename, including its dot.
//
// A dot that leads the name doesn't start an extension: ".png" has none,
// but "..png" and ".hidden.png" have ".png".
func Extension(filename string) string {
	base := filepath.Base(filename)
	if base == ".." {
		return ""
	}
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return ""
	}
	return strings.ToLower(base[dot:])
}
