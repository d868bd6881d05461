package shaping

// Contextual joining for the Arabic block, mapping letters to their
// Unicode presentation forms (U+FE70..U+FEFF). A letter with no initial
// form is right-joining: it connects to the preceding letter only.

type forms struct {
	iso, fin, ini, med rune
}

const (
	lam     = 0x0644
	tatweel = 0x0640
)

var joinTable = map[rune]forms{
	0x0621: {0xFE80, 0, 0, 0},                // hamza
	0x0622: {0xFE81, 0xFE82, 0, 0},           // alef madda
	0x0623: {0xFE83, 0xFE84, 0, 0},           // alef hamza above
	0x0624: {0xFE85, 0xFE86, 0, 0},           // waw hamza
	0x0625: {0xFE87, 0xFE88, 0, 0},           // alef hamza below
	0x0626: {0xFE89, 0xFE8A, 0xFE8B, 0xFE8C}, // yeh hamza
	0x0627: {0xFE8D, 0xFE8E, 0, 0},           // alef
	0x0628: {0xFE8F, 0xFE90, 0xFE91, 0xFE92}, // beh
	0x0629: {0xFE93, 0xFE94, 0, 0},           // teh marbuta
	0x062A: {0xFE95, 0xFE96, 0xFE97, 0xFE98}, // teh
	0x062B: {0xFE99, 0xFE9A, 0xFE9B, 0xFE9C}, // theh
	0x062C: {0xFE9D, 0xFE9E, 0xFE9F, 0xFEA0}, // jeem
	0x062D: {0xFEA1, 0xFEA2, 0xFEA3, 0xFEA4}, // hah
	0x062E: {0xFEA5, 0xFEA6, 0xFEA7, 0xFEA8}, // khah
	0x062F: {0xFEA9, 0xFEAA, 0, 0},           // dal
	0x0630: {0xFEAB, 0xFEAC, 0, 0},           // thal
	0x0631: {0xFEAD, 0xFEAE, 0, 0},           // reh
	0x0632: {0xFEAF, 0xFEB0, 0, 0},           // zain
	0x0633: {0xFEB1, 0xFEB2, 0xFEB3, 0xFEB4}, // seen
	0x0634: {0xFEB5, 0xFEB6, 0xFEB7, 0xFEB8}, // sheen
	0x0635: {0xFEB9, 0xFEBA, 0xFEBB, 0xFEBC}, // sad
	0x0636: {0xFEBD, 0xFEBE, 0xFEBF, 0xFEC0}, // dad
	0x0637: {0xFEC1, 0xFEC2, 0xFEC3, 0xFEC4}, // tah
	0x0638: {0xFEC5, 0xFEC6, 0xFEC7, 0xFEC8}, // zah
	0x0639: {0xFEC9, 0xFECA, 0xFECB, 0xFECC}, // ain
	0x063A: {0xFECD, 0xFECE, 0xFECF, 0xFED0}, // ghain
	tatweel: {tatweel, tatweel, tatweel, tatweel},
	0x0641: {0xFED1, 0xFED2, 0xFED3, 0xFED4}, // feh
	0x0642: {0xFED5, 0xFED6, 0xFED7, 0xFED8}, // qaf
	0x0643: {0xFED9, 0xFEDA, 0xFEDB, 0xFEDC}, // kaf
	lam:    {0xFEDD, 0xFEDE, 0xFEDF, 0xFEE0}, // lam
	0x0645: {0xFEE1, 0xFEE2, 0xFEE3, 0xFEE4}, // meem
	0x0646: {0xFEE5, 0xFEE6, 0xFEE7, 0xFEE8}, // noon
	0x0647: {0xFEE9, 0xFEEA, 0xFEEB, 0xFEEC}, // heh
	0x0648: {0xFEED, 0xFEEE, 0, 0},           // waw
	0x0649: {0xFEEF, 0xFEF0, 0, 0},           // alef maksura
	0x064A: {0xFEF1, 0xFEF2, 0xFEF3, 0xFEF4}, // yeh
}

// lam + alef variants collapse into a single ligature glyph.
var lamAlef = map[rune]forms{
	0x0622: {iso: 0xFEF5, fin: 0xFEF6},
	0x0623: {iso: 0xFEF7, fin: 0xFEF8},
	0x0625: {iso: 0xFEF9, fin: 0xFEFA},
	0x0627: {iso: 0xFEFB, fin: 0xFEFC},
}

// isTransparent reports harakat and other combining marks that do not
// participate in joining.
func isTransparent(r rune) bool {
	switch {
	case r >= 0x0610 && r <= 0x061A:
		return true
	case r >= 0x064B && r <= 0x065F:
		return true
	case r == 0x0670:
		return true
	}
	return false
}

// dualJoining reports whether r connects to the following letter.
func dualJoining(r rune) bool {
	f, ok := joinTable[r]
	return ok && f.ini != 0
}

// acceptsJoin reports whether r can receive a connection from the
// preceding letter.
func acceptsJoin(r rune) bool {
	_, ok := joinTable[r]
	return ok
}

// nextJoinable returns the index of the next non-transparent rune, or -1.
func nextJoinable(in []rune, i int) int {
	for j := i + 1; j < len(in); j++ {
		if !isTransparent(in[j]) {
			return j
		}
	}
	return -1
}

// reshape replaces Arabic letters with their contextual presentation forms
// and folds lam-alef pairs into ligatures. Non-Arabic runes pass through.
func reshape(in []rune) []rune {
	out := make([]rune, 0, len(in))
	prevJoins := false
	for i := 0; i < len(in); i++ {
		r := in[i]
		if isTransparent(r) {
			out = append(out, r)
			continue
		}
		f, ok := joinTable[r]
		if !ok {
			out = append(out, r)
			prevJoins = false
			continue
		}
		if r == lam && i+1 < len(in) {
			if lig, ok := lamAlef[in[i+1]]; ok {
				if prevJoins {
					out = append(out, lig.fin)
				} else {
					out = append(out, lig.iso)
				}
				i++
				prevJoins = false
				continue
			}
		}
		joinsPrev := prevJoins
		joinsNext := false
		if f.ini != 0 {
			if j := nextJoinable(in, i); j >= 0 {
				joinsNext = acceptsJoin(in[j])
			}
		}
		var form rune
		switch {
		case joinsPrev && joinsNext:
			form = f.med
		case joinsNext:
			form = f.ini
		case joinsPrev:
			form = f.fin
		default:
			form = f.iso
		}
		if form == 0 {
			if joinsPrev && f.fin != 0 {
				form = f.fin
			} else {
				form = f.iso
			}
		}
		out = append(out, form)
		prevJoins = f.ini != 0
	}
	return out
}

// ContainsArabic reports whether s holds any Arabic-script rune, including
// presentation forms.
func ContainsArabic(s string) bool {
	for _, r := range s {
		if (r >= 0x0600 && r <= 0x06FF) ||
			(r >= 0x0750 && r <= 0x077F) ||
			(r >= 0xFB50 && r <= 0xFDFF) ||
			(r >= 0xFE70 && r <= 0xFEFF) {
			return true
		}
	}
	return false
}
