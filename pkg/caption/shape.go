package caption

import (
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

const (
	zwnj    = '\u200c'
	tatweel = '\u0640'
)

// contextual forms of a letter. Letters that only join to the preceding
// letter have no initial or medial form.
type forms struct {
	isolated, final, initial, medial rune
}

func (f forms) dual() bool { return f.initial != 0 }

var letters = map[rune]forms{
	'آ': {0xFE81, 0xFE82, 0, 0},
	'أ': {0xFE83, 0xFE84, 0, 0},
	'ؤ': {0xFE85, 0xFE86, 0, 0},
	'إ': {0xFE87, 0xFE88, 0, 0},
	'ئ': {0xFE89, 0xFE8A, 0xFE8B, 0xFE8C},
	'ا': {0xFE8D, 0xFE8E, 0, 0},
	'ب': {0xFE8F, 0xFE90, 0xFE91, 0xFE92},
	'ة': {0xFE93, 0xFE94, 0, 0},
	'ت': {0xFE95, 0xFE96, 0xFE97, 0xFE98},
	'ث': {0xFE99, 0xFE9A, 0xFE9B, 0xFE9C},
	'ج': {0xFE9D, 0xFE9E, 0xFE9F, 0xFEA0},
	'ح': {0xFEA1, 0xFEA2, 0xFEA3, 0xFEA4},
	'خ': {0xFEA5, 0xFEA6, 0xFEA7, 0xFEA8},
	'د': {0xFEA9, 0xFEAA, 0, 0},
	'ذ': {0xFEAB, 0xFEAC, 0, 0},
	'ر': {0xFEAD, 0xFEAE, 0, 0},
	'ز': {0xFEAF, 0xFEB0, 0, 0},
	'س': {0xFEB1, 0xFEB2, 0xFEB3, 0xFEB4},
	'ش': {0xFEB5, 0xFEB6, 0xFEB7, 0xFEB8},
	'ص': {0xFEB9, 0xFEBA, 0xFEBB, 0xFEBC},
	'ض': {0xFEBD, 0xFEBE, 0xFEBF, 0xFEC0},
	'ط': {0xFEC1, 0xFEC2, 0xFEC3, 0xFEC4},
	'ظ': {0xFEC5, 0xFEC6, 0xFEC7, 0xFEC8},
	'ع': {0xFEC9, 0xFECA, 0xFECB, 0xFECC},
	'غ': {0xFECD, 0xFECE, 0xFECF, 0xFED0},
	'ف': {0xFED1, 0xFED2, 0xFED3, 0xFED4},
	'ق': {0xFED5, 0xFED6, 0xFED7, 0xFED8},
	'ك': {0xFED9, 0xFEDA, 0xFEDB, 0xFEDC},
	'ل': {0xFEDD, 0xFEDE, 0xFEDF, 0xFEE0},
	'م': {0xFEE1, 0xFEE2, 0xFEE3, 0xFEE4},
	'ن': {0xFEE5, 0xFEE6, 0xFEE7, 0xFEE8},
	'ه': {0xFEE9, 0xFEEA, 0xFEEB, 0xFEEC},
	'و': {0xFEED, 0xFEEE, 0, 0},
	'ى': {0xFEEF, 0xFEF0, 0, 0},
	'ي': {0xFEF1, 0xFEF2, 0xFEF3, 0xFEF4},
	'پ': {0xFB56, 0xFB57, 0xFB58, 0xFB59},
	'چ': {0xFB7A, 0xFB7B, 0xFB7C, 0xFB7D},
	'ژ': {0xFB8A, 0xFB8B, 0, 0},
	'ک': {0xFB8E, 0xFB8F, 0xFB90, 0xFB91},
	'گ': {0xFB92, 0xFB93, 0xFB94, 0xFB95},
	'ی': {0xFBFC, 0xFBFD, 0xFBFE, 0xFBFF},
}

// lam followed by one of these alefs becomes a single ligature: isolated, final.
var lamAlef = map[rune][2]rune{
	'آ': {0xFEF5, 0xFEF6},
	'أ': {0xFEF7, 0xFEF8},
	'إ': {0xFEF9, 0xFEFA},
	'ا': {0xFEFB, 0xFEFC},
}

// Shape returns s ready for drawing with a font that has Arabic presentation
// forms: letters take their contextual form and the line is laid out in
// visual order for a right-to-left paragraph. Runs of numbers and Latin text
// keep their left-to-right order.
func Shape(s string) string {
	return string(reorder(join([]rune(s))))
}

// join replaces letters with their contextual forms and drops ZWNJ.
func join(rs []rune) []rune {
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		f, ok := letters[r]
		if !ok {
			if r != zwnj {
				out = append(out, r)
			}
			continue
		}

		prev := joinsNext(neighbor(rs, i, -1))
		if r == 'ل' {
			if j := skipMarks(rs, i, 1); j >= 0 {
				if lig, ok := lamAlef[rs[j]]; ok {
					if prev {
						out = append(out, lig[1])
					} else {
						out = append(out, lig[0])
					}
					out = append(out, rs[i+1:j]...)
					i = j
					continue
				}
			}
		}

		next := f.dual() && joinsPrev(neighbor(rs, i, 1))
		switch {
		case prev && next:
			out = append(out, f.medial)
		case prev:
			out = append(out, f.final)
		case next:
			out = append(out, f.initial)
		default:
			out = append(out, f.isolated)
		}
	}
	return out
}

func skipMarks(rs []rune, i, step int) int {
	for j := i + step; j >= 0 && j < len(rs); j += step {
		if !unicode.Is(unicode.Mn, rs[j]) {
			return j
		}
	}
	return -1
}

func neighbor(rs []rune, i, step int) rune {
	if j := skipMarks(rs, i, step); j >= 0 {
		return rs[j]
	}
	return 0
}

// joinsNext reports whether r connects to the letter after it.
func joinsNext(r rune) bool {
	if r == tatweel {
		return true
	}
	f, ok := letters[r]
	return ok && f.dual()
}

// joinsPrev reports whether r connects to the letter before it.
func joinsPrev(r rune) bool {
	if r == tatweel {
		return true
	}
	_, ok := letters[r]
	return ok
}

type direction int

const (
	rtl direction = iota
	ltr
	number
	neutral
)

func classify(r rune) direction {
	p, _ := bidi.LookupRune(r)
	switch p.Class() {
	case bidi.R, bidi.AL:
		return rtl
	case bidi.L:
		return ltr
	case bidi.EN, bidi.AN:
		return number
	default:
		return neutral
	}
}

func separates(r rune) bool {
	p, _ := bidi.LookupRune(r)
	switch p.Class() {
	case bidi.CS, bidi.ES, bidi.ET:
		return true
	}
	return false
}

// reorder lays out a single right-to-left line. Left-to-right runs (Latin
// text, numbers) keep their internal order; everything else is reversed.
func reorder(rs []rune) []rune {
	dirs := make([]direction, len(rs))
	for i, r := range rs {
		dirs[i] = classify(r)
	}

	// separators between two digits belong to the number: 1403/1/1, 09:05
	for i := 1; i+1 < len(rs); i++ {
		if dirs[i] == neutral && separates(rs[i]) && dirs[i-1] == number && dirs[i+1] == number {
			dirs[i] = number
		}
	}

	// neutrals take the direction of their surroundings when both sides agree
	// on left-to-right, and the paragraph direction otherwise
	ltrRun := make([]bool, len(rs))
	for i := 0; i < len(rs); {
		if dirs[i] != neutral {
			ltrRun[i] = dirs[i] == ltr || dirs[i] == number
			i++
			continue
		}
		j := i
		for j < len(rs) && dirs[j] == neutral {
			j++
		}
		embed := i > 0 && j < len(rs) && dirs[i-1] == ltr && dirs[j] == ltr
		for k := i; k < j; k++ {
			ltrRun[k] = embed
		}
		i = j
	}

	out := make([]rune, 0, len(rs))
	for i := len(rs) - 1; i >= 0; {
		if !ltrRun[i] {
			out = append(out, rs[i])
			i--
			continue
		}
		j := i
		for j >= 0 && ltrRun[j] {
			j--
		}
		out = append(out, rs[j+1:i+1]...)
		i = j
	}
	return out
}
