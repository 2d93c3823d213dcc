// Package scoring computes rarity-weighted event scores and picks the round loser.
package scoring

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

// FastTapBonus is added when a player's call lands close to the canonical event time
const FastTapBonus = 0.25

// StatsStore is the per-round hit statistics collaborator.
// RecordHit must be atomic per (round, text).
type StatsStore interface {
	RecordHit(roundID, text, playerID string) (stat models.EventStat, roundTotal int)
}

// Score is the breakdown of one awarded event
type Score struct {
	Weight          float64 `json:"weight"`
	BaseScore       float64 `json:"base_score"`
	CompletionBonus float64 `json:"completion_bonus"`
	FastTapBonus    float64 `json:"fast_tap_bonus"`
	TotalScore      float64 `json:"total_score"`
}

// ComputeWeight returns the rarity weight of a text that has textHits of the
// round's totalHits. A text nobody else has hit weighs the most; the weight
// never drops below 1.
func ComputeWeight(textHits, totalHits int) float64 {
	if textHits <= 0 || totalHits <= textHits {
		return 1
	}
	return 1 + math.Log2(float64(totalHits)/float64(textHits))
}

// ComputeScore builds the score breakdown for a weight. It has no side effects.
func ComputeScore(weight, multiplier float64, fastTap bool) Score {
	s := Score{
		Weight:    weight,
		BaseScore: weight,
	}
	s.CompletionBonus = s.BaseScore * (multiplier - 1)
	if fastTap {
		s.FastTapBonus = FastTapBonus
	}
	s.TotalScore = s.BaseScore + s.CompletionBonus + s.FastTapBonus
	return s
}

// Engine scores events against a stats store
type Engine struct {
	stats StatsStore
}

// NewEngine creates an Engine
func NewEngine(stats StatsStore) *Engine {
	return &Engine{stats: stats}
}

// CalculateEventScore records a hit for playerID on text and then scores it,
// so the weight already counts this hit. The recorded hit is permanent even
// if the caller discards the score.
func (e *Engine) CalculateEventScore(roundID, text, playerID string, multiplier float64, fastTap bool) Score {
	stat, total := e.stats.RecordHit(roundID, text, playerID)
	return ComputeScore(ComputeWeight(stat.Hits, total), multiplier, fastTap)
}

// DetermineLoser returns the player whose parlay ranks lowest by score, then
// legs hit, then accuracy, then latest completion (never completed counts as
// latest). Full ties are broken uniformly at random with rng.
func DetermineLoser(parlays []models.Parlay, rng *rand.Rand) (string, bool) {
	if len(parlays) == 0 {
		return "", false
	}

	sorted := make([]models.Parlay, len(parlays))
	copy(sorted, parlays)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareParlays(sorted[i], sorted[j]) < 0
	})

	tied := 1
	for tied < len(sorted) && compareParlays(sorted[0], sorted[tied]) == 0 {
		tied++
	}
	if tied == 1 {
		return sorted[0].PlayerID, true
	}
	return sorted[rng.IntN(tied)].PlayerID, true
}

// compareParlays orders a before b when a is closer to losing
func compareParlays(a, b models.Parlay) int {
	switch {
	case a.ScoreFinal != b.ScoreFinal:
		return cmpFloat(a.ScoreFinal, b.ScoreFinal)
	case a.LegsHit != b.LegsHit:
		if a.LegsHit < b.LegsHit {
			return -1
		}
		return 1
	case a.Accuracy != b.Accuracy:
		return cmpFloat(a.Accuracy, b.Accuracy)
	}
	// Later completion loses, so compare in reverse.
	return -compareCompleted(a.CompletedAt, b.CompletedAt)
}

// compareCompleted orders completion times with nil after every time
func compareCompleted(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
