package game

import (
	"math"
	"strings"

	"github.com/neuroforge/backend/internal/models"
)

// Jitter returns a value in [0, n). Optimization profiling uses it to model
// measurement noise; tests pass a fixed source.
type Jitter func(n int) int

// ruleset holds everything category-specific about a duel.
type ruleset struct {
	rounds int
	setup  func(s *DuelState)
	score  func(s *DuelState, payload string, jitter Jitter) (int, map[string]any)
}

var rulesets = map[string]ruleset{
	models.CategoryTranslation: {
		rounds: 10,
		setup:  setupTranslation,
		score:  scoreTranslation,
	},
	models.CategoryOptimization: {
		rounds: 5,
		setup:  setupOptimization,
		score:  scoreOptimization,
	},
}

// SupportedCategory reports whether duels of category can be played.
func SupportedCategory(category string) bool {
	_, ok := rulesets[category]
	return ok
}

// Translation

const translationPoints = 100

func setupTranslation(s *DuelState) {
	phrases := make([]Phrase, len(phraseBank))
	copy(phrases, phraseBank)
	s.Translation = &TranslationContent{Phrases: phrases}
}

func scoreTranslation(s *DuelState, payload string, _ Jitter) (int, map[string]any) {
	if s.Translation == nil || len(s.Translation.Phrases) == 0 {
		return 0, nil
	}
	phrase := s.Translation.Phrases[(s.CurrentRound-1)%len(s.Translation.Phrases)]
	correct := strings.EqualFold(strings.TrimSpace(payload), phrase.Answer)

	score := 0
	if correct {
		score = translationPoints
	}
	return score, map[string]any{"correct": correct}
}

// Optimization

func setupOptimization(s *DuelState) {
	s.Optimization = &OptimizationContent{
		Problem:      optimizationProblem,
		OriginalCode: optimizationBaseline,
	}
}

func scoreOptimization(_ *DuelState, code string, jitter Jitter) (int, map[string]any) {
	m := profileCode(code, jitter)
	return int(math.Round(m.Efficiency)), map[string]any{
		"execution_time": m.ExecutionTime,
		"memory_usage":   m.MemoryUsage,
		"complexity":     m.Complexity,
		"efficiency":     m.Efficiency,
	}
}

// CodeMetrics is the heuristic profile of one optimization submission
type CodeMetrics struct {
	ExecutionTime int
	MemoryUsage   int
	Complexity    string
	Efficiency    float64
}

func profileCode(code string, jitter Jitter) CodeMetrics {
	m := CodeMetrics{
		ExecutionTime: max(20, 50+jitter(100)+len(code)/10),
		MemoryUsage:   max(30, 50+jitter(50)+len(code)/20),
		Complexity:    estimateComplexity(code),
	}
	m.Efficiency = efficiency(m)
	return m
}

func estimateComplexity(code string) string {
	if i := strings.Index(code, "for ("); i >= 0 && strings.Contains(code[i+1:], "for (") {
		return "n^2"
	}
	for _, loop := range []string{"for (", "while (", ".forEach(", ".map("} {
		if strings.Contains(code, loop) {
			return "n"
		}
	}
	if strings.Contains(code, ".sort(") {
		return "n log n"
	}
	return "1"
}

var complexityRank = map[string]int{
	"1":       1,
	"log n":   2,
	"n":       3,
	"n log n": 4,
	"n^2":     5,
	"n^3":     6,
	"2^n":     7,
	"n!":      8,
}

func complexityScore(c string) int {
	c = strings.ToLower(strings.TrimSpace(c))
	if strings.HasPrefix(c, "o(") && strings.HasSuffix(c, ")") {
		c = strings.TrimSpace(c[2 : len(c)-1])
	}
	if r, ok := complexityRank[c]; ok {
		return r
	}
	return 10
}

// efficiency maps the weighted penalty of a profile onto 0..100.
func efficiency(m CodeMetrics) float64 {
	penalty := float64(m.ExecutionTime)*0.4 +
		float64(m.MemoryUsage)*0.3 +
		float64(complexityScore(m.Complexity)*10)*0.3
	return math.Max(0, math.Min(100, 100-penalty/150*100))
}
