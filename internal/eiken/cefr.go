package eiken

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level. The numeric value is the ordinal used
// by difficulty metrics (A1=1 .. C2=6).
type Level int

const (
	LevelUnknown Level = iota
	A1
	A2
	B1
	B2
	C1
	C2
)

var levelNames = [...]string{"", "A1", "A2", "B1", "B2", "C1", "C2"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses "A1".."C2", case-insensitively.
func ParseLevel(s string) (Level, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i := A1; i <= C2; i++ {
		if levelNames[i] == up {
			return i, nil
		}
	}
	return LevelUnknown, fmt.Errorf("unknown CEFR level %q", s)
}

// IsBasic reports whether l belongs to the A band.
func (l Level) IsBasic() bool { return l == A1 || l == A2 }

// Band is one of the twelve CEFR-J bands, ordered preA1 (0) .. C2 (11).
type Band int

const (
	BandPreA1 Band = iota
	BandA1_1
	BandA1_2
	BandA1_3
	BandA2_1
	BandA2_2
	BandB1_1
	BandB1_2
	BandB2_1
	BandB2_2
	BandC1
	BandC2
)

var bandNames = [...]string{
	"preA1", "A1.1", "A1.2", "A1.3", "A2.1", "A2.2",
	"B1.1", "B1.2", "B2.1", "B2.2", "C1", "C2",
}

func (b Band) String() string {
	if b < 0 || int(b) >= len(bandNames) {
		return fmt.Sprintf("Band(%d)", int(b))
	}
	return bandNames[b]
}

// ParseBand parses a band name such as "A2.1".
func ParseBand(s string) (Band, error) {
	for i, n := range bandNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return Band(i), nil
		}
	}
	return 0, fmt.Errorf("unknown CEFR-J band %q", s)
}
