package service

import (
	"fmt"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Censor masks configured words in chat bodies. Matching ignores case,
// punctuation and spacing, and folds common digit substitutions,
// so "B.4.d" matches "bad".
type Censor struct {
	machine *goahocorasick.Machine
	mask    rune
}

// NewCensor returns nil when words is empty, which disables censoring.
func NewCensor(words []string, mask rune) (*Censor, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		norm, _ := foldText(w)
		if len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build censor: %w", err)
	}
	return &Censor{machine: m, mask: mask}, nil
}

// Apply returns body with every match replaced by the mask rune, one per original rune.
func (c *Censor) Apply(body string) string {
	if c == nil {
		return body
	}
	folded, positions := foldText(body)
	if len(folded) == 0 {
		return body
	}

	terms := c.machine.MultiPatternSearch(folded, false)
	if len(terms) == 0 {
		return body
	}

	out := []rune(body)
	for _, term := range terms {
		first, last := term.Pos, term.Pos+len(term.Word)-1
		if first < 0 || last >= len(positions) {
			continue
		}
		for i := positions[first]; i <= positions[last]; i++ {
			out[i] = c.mask
		}
	}
	return string(out)
}

// foldText drops separators and lowercases the rest. positions maps every
// folded rune back to its index in the original rune slice.
func foldText(s string) (folded []rune, positions []int) {
	for i, r := range []rune(s) {
		r = unfoldDigit(r)
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		positions = append(positions, i)
	}
	return folded, positions
}

func unfoldDigit(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	}
	return r
}
