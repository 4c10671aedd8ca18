package selection

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/abhisek/eikengen/internal/store"
)

// Method is how a topic was picked from the pool.
type Method string

const (
	MethodExploration  Method = "exploration"
	MethodExploitation Method = "exploitation"
)

// Candidate is a pool topic with its scoring inputs.
type Candidate struct {
	Topic       store.Topic
	Stats       store.TopicStatistics // zero value before the first selection
	Suitability float64
}

// WeightScore is weight × official frequency.
func (c Candidate) WeightScore() float64 {
	return c.Topic.Weight * c.Topic.OfficialFrequency
}

// FinalScore is the roulette weight.
func (c Candidate) FinalScore() float64 {
	return c.WeightScore() * c.Suitability
}

// DefaultEpsilon is the exploration probability.
const DefaultEpsilon = 0.15

// Policy is an ε-greedy chooser. It is safe for concurrent use; the
// random source is guarded so seeded runs stay reproducible.
type Policy struct {
	epsilon float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy returns a policy drawing from src. A nil src uses a randomly
// seeded PCG.
func NewPolicy(epsilon float64, src rand.Source) *Policy {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Policy{epsilon: epsilon, rng: rand.New(src)}
}

// NewSeededPolicy returns a deterministic policy.
func NewSeededPolicy(epsilon float64, seed uint64) *Policy {
	return NewPolicy(epsilon, rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Epsilon returns the exploration probability.
func (p *Policy) Epsilon() float64 { return p.epsilon }

// Choose picks one candidate. cands must be non-empty.
func (p *Policy) Choose(cands []Candidate, forceExplore bool) (Candidate, Method) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if forceExplore || p.rng.Float64() < p.epsilon {
		return p.explore(cands), MethodExploration
	}
	return p.exploit(cands), MethodExploitation
}

// explore prefers never-selected topics, then the least selected with the
// lowest success rate.
func (p *Policy) explore(cands []Candidate) Candidate {
	var fresh []Candidate
	for _, c := range cands {
		if c.Stats.SelectionCount == 0 {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) > 0 {
		return fresh[p.rng.IntN(len(fresh))]
	}

	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		if c := cmp.Compare(a.Stats.SelectionCount, b.Stats.SelectionCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Stats.SuccessRate(), b.Stats.SuccessRate())
	})
	return sorted[0]
}

// exploit is roulette-wheel selection over FinalScore.
func (p *Policy) exploit(cands []Candidate) Candidate {
	var total float64
	for _, c := range cands {
		total += max(c.FinalScore(), 0)
	}
	if total <= 0 {
		return cands[p.rng.IntN(len(cands))]
	}

	r := p.rng.Float64() * total
	for _, c := range cands {
		r -= max(c.FinalScore(), 0)
		if r < 0 {
			return c
		}
	}
	return cands[len(cands)-1]
}
