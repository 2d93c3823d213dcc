// Package clustering groups timestamped calls into clusters of agreement.
// Everything here is pure and safe to call from any goroutine.
package clustering

import (
	"math"
	"sort"
	"time"

	"github.com/parlaywatch/parlaywatch/internal/models"
)

const (
	// TwoPlayerRecency is how far back in wall-clock time the two-player check looks
	TwoPlayerRecency = 3 * time.Second
	// TwoPlayerWindow is the video-time window used by the two-player check
	TwoPlayerWindow = 1.5
)

// ClusterVotes groups calls with the same normalized text whose video time is
// within window seconds of a seed call. Seeds are taken in ascending video
// time; each call lands in exactly one cluster. Clusters are returned with the
// most distinct voters first.
func ClusterVotes(calls []models.Call, window float64) []models.VoteCluster {
	sorted := make([]models.Call, len(calls))
	copy(sorted, calls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VideoTime < sorted[j].VideoTime
	})

	used := make([]bool, len(sorted))
	var clusters []models.VoteCluster

	for i, seed := range sorted {
		if used[i] {
			continue
		}

		var members []models.Call
		for j := i; j < len(sorted); j++ {
			if used[j] || sorted[j].NormalizedText != seed.NormalizedText {
				continue
			}
			if math.Abs(sorted[j].VideoTime-seed.VideoTime) <= window {
				used[j] = true
				members = append(members, sorted[j])
			}
		}

		clusters = append(clusters, buildCluster(seed.NormalizedText, members))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	return clusters
}

func buildCluster(text string, members []models.Call) models.VoteCluster {
	c := models.VoteCluster{
		NormalizedText: text,
		Voters:         DistinctVoters(members),
		TMin:           members[0].VideoTime,
		TMax:           members[0].VideoTime,
	}
	var sum float64
	for _, m := range members {
		sum += m.VideoTime
		c.TMin = math.Min(c.TMin, m.VideoTime)
		c.TMax = math.Max(c.TMax, m.VideoTime)
	}
	c.TCenter = sum / float64(len(members))
	c.Count = len(c.Voters)
	return c
}

// ShouldAutoPause reports whether a cluster has enough voters to pause play.
// The bar is the larger of minVotes and the threshold share of the room.
func ShouldAutoPause(cluster models.VoteCluster, totalPlayers int, thresholdPct float64, minVotes int) bool {
	required := max(minVotes, int(math.Ceil(float64(totalPlayers)*thresholdPct)))
	return cluster.Count >= required
}

// CheckTwoPlayerConsensus applies the room's two-player rule to the calls made
// in the last few seconds. It returns nil unless playerCount is exactly two
// and some cluster satisfies the mode.
func CheckTwoPlayerConsensus(calls []models.Call, mode models.TwoPlayerMode, playerCount int, now time.Time) *models.VoteCluster {
	if playerCount != 2 {
		return nil
	}

	var recent []models.Call
	for _, c := range calls {
		if now.Sub(c.CreatedAt) <= TwoPlayerRecency {
			recent = append(recent, c)
		}
	}

	for _, cluster := range ClusterVotes(recent, TwoPlayerWindow) {
		if accepts(mode, cluster) {
			return &cluster
		}
	}
	return nil
}

// accepts is the per-mode acceptance rule
func accepts(mode models.TwoPlayerMode, cluster models.VoteCluster) bool {
	switch mode {
	case models.ModeUnanimous, models.ModeSingleCallerVerify:
		return cluster.Count == 2
	case models.ModeJudge, models.ModeSpeedCall:
		return cluster.Count >= 1
	}
	return false
}

// DistinctVoters returns the player ids of calls in first-seen order
func DistinctVoters(calls []models.Call) []string {
	seen := make(map[string]bool, len(calls))
	voters := make([]string, 0, len(calls))
	for _, c := range calls {
		if !seen[c.PlayerID] {
			seen[c.PlayerID] = true
			voters = append(voters, c.PlayerID)
		}
	}
	return voters
}

// WithinWindow returns the calls for text whose video time is within window
// seconds of center
func WithinWindow(calls []models.Call, text string, center, window float64) []models.Call {
	var matched []models.Call
	for _, c := range calls {
		if c.NormalizedText == text && math.Abs(c.VideoTime-center) <= window {
			matched = append(matched, c)
		}
	}
	return matched
}

// Median returns the median of values. ok is false for an empty slice.
func Median(values []float64) (median float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

// Times extracts the video times of calls
func Times(calls []models.Call) []float64 {
	times := make([]float64, len(calls))
	for i, c := range calls {
		times[i] = c.VideoTime
	}
	return times
}
