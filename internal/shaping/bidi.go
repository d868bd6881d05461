package shaping

import "golang.org/x/text/unicode/bidi"

// visualOrder resolves the visual run ordering of a paragraph with the
// Unicode bidirectional algorithm. Runs come back from x/text in logical
// order split by embedding-level parity; rule L2 then reduces to: with an
// RTL base, reverse the run sequence, and in both bases reverse the runes
// inside each RTL run. Embedded LTR runs (numerals, product codes) keep
// their internal order. This handles embedding levels up to 2, which is
// all that plain text without explicit directional controls produces.
func visualOrder(runes []rune, base Direction) ([]Segment, error) {
	def := bidi.LeftToRight
	if base == RTL {
		def = bidi.RightToLeft
	}
	var p bidi.Paragraph
	if _, err := p.SetString(string(runes), bidi.DefaultDirection(def)); err != nil {
		return nil, err
	}
	ord, err := p.Order()
	if err != nil {
		return nil, err
	}
	n := ord.NumRuns()
	segs := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		idx := i
		if base == RTL {
			idx = n - 1 - i
		}
		run := ord.Run(idx)
		rr := []rune(run.String())
		dir := LTR
		if run.Direction() == bidi.RightToLeft {
			dir = RTL
			reverseRunes(rr)
		}
		segs = append(segs, Segment{Dir: dir, Runes: rr})
	}
	return segs, nil
}

func reverseRunes(rr []rune) {
	for i, j := 0, len(rr)-1; i < j; i, j = i+1, j-1 {
		rr[i], rr[j] = rr[j], rr[i]
	}
}
