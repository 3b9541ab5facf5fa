package assessment

import (
	"math/rand"
	"sync"

	"saferoads/models"
)

type bucket struct {
	above             int
	damageType        string
	description       string
	recommendedAction string
}

// buckets are checked top-down; the first whose lower bound the score exceeds wins.
var buckets = []bucket{
	{80, "Severe Pothole/Crack", "Critical road damage detected requiring immediate attention", "Immediate repair and traffic diversion recommended"},
	{60, "Moderate Road Wear", "Significant road damage that needs scheduled repair", "Schedule repair within 1-2 weeks"},
	{30, "Minor Surface Damage", "Minor cracks or wear visible on road surface", "Monitor and schedule routine maintenance"},
	{-1, "Good Condition", "Road surface is in acceptable condition", "No immediate action required"},
}

// Simulate derives every assessment field from a score using the fixed bucket table.
func Simulate(score int) models.Assessment {
	b := buckets[len(buckets)-1]
	for _, candidate := range buckets {
		if score > candidate.above {
			b = candidate
			break
		}
	}
	return models.Assessment{
		DamageScore:       score,
		DamageType:        b.damageType,
		Severity:          models.SeverityFor(score),
		Description:       b.description,
		RecommendedAction: b.recommendedAction,
	}
}

// Simulator stands in for the inference service when it cannot be reached.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

// Next draws a uniform score in [0,100] and applies Simulate.
func (s *Simulator) Next() models.Assessment {
	s.mu.Lock()
	score := s.rng.Intn(101)
	s.mu.Unlock()
	return Simulate(score)
}
