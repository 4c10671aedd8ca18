package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/lexicon"
)

// Regression maps a raw metric onto the common CEFR scale: min(Slope*x +
// Intercept, Cap).
type Regression struct {
	Slope     float64 `yaml:"slope"`
	Intercept float64 `yaml:"intercept"`
	Cap       float64 `yaml:"cap"`
}

// Apply maps x.
func (r Regression) Apply(x float64) float64 {
	return math.Min(r.Slope*x+r.Intercept, r.Cap)
}

// ComplexityConfig holds the CVLA calibration. The constants come from
// the Uchida & Negishi (2018) study and should be revalidated against
// local data before tuning.
type ComplexityConfig struct {
	AvrDiff    Regression `yaml:"avr_diff"`
	BperA      Regression `yaml:"b_per_a"`
	ARI        Regression `yaml:"ari"`
	Thresholds []float64  `yaml:"thresholds" validate:"len=11"`
	MaxGap     int        `yaml:"max_gap" validate:"gte=0"`
}

// DefaultComplexityConfig returns the published calibration.
func DefaultComplexityConfig() ComplexityConfig {
	return ComplexityConfig{
		AvrDiff:    Regression{Slope: 6.417, Intercept: -7.184, Cap: 7},
		BperA:      Regression{Slope: 13.146, Intercept: 0.428, Cap: 7},
		ARI:        Regression{Slope: 0.607, Intercept: -1.632, Cap: 7},
		Thresholds: []float64{0.5, 0.84, 1.17, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5.5},
		MaxGap:     3,
	}
}

// Band maps a CVLA score to its CEFR-J band. Thresholds are lower bounds
// of bands A1.1 through C2.
func (c ComplexityConfig) Band(score float64) eiken.Band {
	b := eiken.BandPreA1
	for _, th := range c.Thresholds {
		if score < th {
			break
		}
		b++
	}
	return b
}

// ComplexityReport is the measured text profile.
type ComplexityReport struct {
	AvrDiff float64
	BperA   float64
	ARI     float64
	Score   float64
	Band    eiken.Band
	Target  eiken.Band
	Valid   bool
}

// Gap is how many bands the text sits above the target.
func (r *ComplexityReport) Gap() int { return int(r.Band) - int(r.Target) }

// ComplexityValidator estimates a CEFR-J band from lexical difficulty,
// high/low level ratio and readability, and rejects texts pitched too far
// above the grade.
type ComplexityValidator struct {
	analyzer *lexicon.Analyzer
	cfg      ComplexityConfig
}

// NewComplexityValidator creates the validator.
func NewComplexityValidator(analyzer *lexicon.Analyzer, cfg ComplexityConfig) *ComplexityValidator {
	return &ComplexityValidator{analyzer: analyzer, cfg: cfg}
}

func (v *ComplexityValidator) Name() string { return StageComplexity }

// Measure profiles text against grade.
func (v *ComplexityValidator) Measure(ctx context.Context, text string, grade eiken.Grade) (*ComplexityReport, error) {
	a, err := v.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	rep := &ComplexityReport{Target: grade.TargetBand()}
	if len(a.Lemmas) == 0 {
		rep.Score = 0.5
		rep.Band = eiken.BandA1_1
		rep.Valid = true
		return rep, nil
	}

	var total, scored, high, low int
	for _, lemma := range a.Lemmas {
		e, ok := a.Entries[lemma]
		if !ok || e.Level == eiken.LevelUnknown {
			continue
		}
		total += int(e.Level)
		scored++
		if e.Level.IsBasic() {
			low++
		} else {
			high++
		}
	}
	rep.AvrDiff = 1.0
	if scored > 0 {
		rep.AvrDiff = float64(total) / float64(scored)
	}
	if low > 0 {
		rep.BperA = float64(high) / float64(low)
	}
	rep.ARI = readability(text)

	rep.Score = (v.cfg.AvrDiff.Apply(rep.AvrDiff) + v.cfg.BperA.Apply(rep.BperA) + v.cfg.ARI.Apply(rep.ARI)) / 3
	rep.Band = v.cfg.Band(rep.Score)
	rep.Valid = rep.Gap() <= v.cfg.MaxGap
	return rep, nil
}

// readability is the Automated Readability Index over whitespace-separated
// words, floored at zero.
func readability(text string) float64 {
	words := strings.Fields(text)
	sentences := lexicon.Sentences(text)
	if len(words) == 0 || len(sentences) == 0 {
		return 0
	}
	chars := 0
	for _, w := range words {
		chars += len([]rune(w))
	}
	cpw := float64(chars) / float64(len(words))
	wps := float64(len(words)) / float64(len(sentences))
	return math.Max(0, 4.71*cpw+0.5*wps-21.43)
}

func (v *ComplexityValidator) Validate(ctx context.Context, q *eiken.Question, t Target) (Result, error) {
	rep, err := v.Measure(ctx, q.Text(), t.Grade)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Stage:  StageComplexity,
		Passed: rep.Valid,
		Metrics: map[string]any{
			"avr_diff": rep.AvrDiff,
			"b_per_a":  rep.BperA,
			"ari":      rep.ARI,
			"score":    rep.Score,
			"band":     rep.Band.String(),
		},
	}
	if !rep.Valid {
		res.Diagnostic = fmt.Sprintf("text estimated at %s, %d bands above target %s: use shorter sentences and simpler words",
			rep.Band, rep.Gap(), rep.Target)
	}
	return res, nil
}
