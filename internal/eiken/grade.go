// Package eiken holds the exam vocabulary shared by every other package:
// grades, question types, CEFR levels and the generated question model.
package eiken

import (
	"fmt"
	"strings"
)

// Grade is an Eiken grade identifier.
type Grade string

const (
	Grade5    Grade = "5"
	Grade4    Grade = "4"
	Grade3    Grade = "3"
	GradePre2 Grade = "pre2"
	Grade2    Grade = "2"
	GradePre1 Grade = "pre1"
	Grade1    Grade = "1"
)

// Grades lists all grades from easiest to hardest.
var Grades = []Grade{Grade5, Grade4, Grade3, GradePre2, Grade2, GradePre1, Grade1}

// ParseGrade accepts the canonical identifiers plus the "p2"/"pre-2" style
// spellings used on exam sheets.
func ParseGrade(s string) (Grade, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "")
	norm = strings.TrimPrefix(norm, "grade")
	switch norm {
	case "p2":
		norm = "pre2"
	case "p1":
		norm = "pre1"
	}
	for _, g := range Grades {
		if string(g) == norm {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown grade %q", s)
}

// Index returns the position of g in Grades, or -1 when unknown.
func (g Grade) Index() int {
	for i, c := range Grades {
		if c == g {
			return i
		}
	}
	return -1
}

// Valid reports whether g is a known grade.
func (g Grade) Valid() bool { return g.Index() >= 0 }

func (g Grade) String() string { return string(g) }

// Label returns the human form, e.g. "Pre-2".
func (g Grade) Label() string {
	switch g {
	case GradePre2:
		return "Pre-2"
	case GradePre1:
		return "Pre-1"
	default:
		return "Grade " + string(g)
	}
}

// Neighbors returns the grades at distance 1..steps from g, nearest first,
// easier before harder at the same distance. g itself is not included.
func (g Grade) Neighbors(steps int) []Grade {
	idx := g.Index()
	if idx < 0 {
		return nil
	}
	var out []Grade
	for d := 1; d <= steps; d++ {
		if i := idx - d; i >= 0 {
			out = append(out, Grades[i])
		}
		if i := idx + d; i < len(Grades) {
			out = append(out, Grades[i])
		}
	}
	return out
}

// Within returns g followed by its neighbors up to steps away.
func (g Grade) Within(steps int) []Grade {
	return append([]Grade{g}, g.Neighbors(steps)...)
}

// TargetCEFR is the highest CEFR level a grade's vocabulary may reach.
func (g Grade) TargetCEFR() Level {
	switch g {
	case Grade5, Grade4:
		return A1
	case Grade3, GradePre2:
		return A2
	case Grade2:
		return B1
	case GradePre1:
		return B2
	case Grade1:
		return C1
	default:
		return A2
	}
}

// TargetBand is the CEFR-J band a grade's reading texts are pitched at.
func (g Grade) TargetBand() Band {
	switch g {
	case Grade5:
		return BandA1_3
	case Grade4:
		return BandA2_1
	case Grade3:
		return BandA2_2
	case GradePre2:
		return BandB1_1
	case Grade2:
		return BandB1_2
	case GradePre1:
		return BandB2_1
	case Grade1:
		return BandC1
	default:
		return BandA2_1
	}
}
