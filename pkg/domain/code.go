package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// PersonalityCode is a normalized four-letter code, one letter per binary axis:
// E/I, N/S, T/F, P/J.
type PersonalityCode string

var codePattern = regexp.MustCompile(`^[EI][NS][TF][PJ]$`)

// axisLetters lists the two letters of each axis, in axis order.
var axisLetters = [4][2]byte{
	{'E', 'I'},
	{'N', 'S'},
	{'T', 'F'},
	{'P', 'J'},
}

// NormalizeCode strips every whitespace rune, uppercases the rest and validates
// the result against the four-axis pattern.
func NormalizeCode(raw string) (PersonalityCode, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)

	if !codePattern.MatchString(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	return PersonalityCode(clean), nil
}

// Axis returns the letter on the given axis (1-based, 1..4).
// It panics on an out-of-range axis, which is a programming defect.
func (c PersonalityCode) Axis(n int) byte {
	if n < 1 || n > 4 || len(c) != 4 {
		panic(fmt.Sprintf("domain: axis %d out of range for code %q", n, string(c)))
	}
	return c[n-1]
}

func (c PersonalityCode) String() string {
	return string(c)
}

// AllCodes enumerates the 16 valid codes in a stable order (E before I, N before S,
// T before F, P before J).
func AllCodes() []PersonalityCode {
	codes := make([]PersonalityCode, 0, 16)
	for _, a := range axisLetters[0] {
		for _, b := range axisLetters[1] {
			for _, c := range axisLetters[2] {
				for _, d := range axisLetters[3] {
					codes = append(codes, PersonalityCode([]byte{a, b, c, d}))
				}
			}
		}
	}
	return codes
}
