// File: internal/matchmaker/formgame.go
// Project: Gargamel League Matchmaker
// Description: Weighted candidate sampling and balanced-split selection
// Version: 1.0.0

package matchmaker

import (
	"container/heap"
	"math"
	"math/rand"
	"time"

	gerrors "github.com/gargamel-league/matchmaker/internal/errors"
	"github.com/gargamel-league/matchmaker/internal/ratingmath"
)

// candidateSplits is how many of the best splits are kept before the final
// weighted pick, matching the 5-best shortlist the original coordinator
// kept via a bounded heap.
const candidateSplits = 5

// Game is the result of forming a game from the queue.
type Game struct {
	Radiant     []Entry
	Dire        []Entry
	RadiantMean float64
	DireMean    float64
	Unfairness  float64
}

// split is a candidate partition of the sampled pool into two teams,
// scored by how unfair and how mismatched in aggregate rating it is.
type split struct {
	radiantIdx []int
	score      float64
}

// splitHeap is a max-heap on score so the candidateSplits best (lowest
// score) partitions can be kept with a bounded-size heap: pushing a new,
// better split evicts the current worst once the heap is full.
type splitHeap []split

func (h splitHeap) Len() int            { return len(h) }
func (h splitHeap) Less(i, j int) bool  { return h[i].score > h[j].score } // max-heap
func (h splitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *splitHeap) Push(x interface{}) { *h = append(*h, x.(split)) }
func (h *splitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FormGame samples 2*teamSize players from the queue, weighted toward
// whoever has waited longest, then searches every way to split the sample
// into two equal teams for the one that best balances both aggregate
// rating and per-rank fairness. The chosen roster is removed from the
// queue. rng is caller-supplied so tests can make selection deterministic.
func (q *Queue) FormGame(teamSize int, now time.Time, rng *rand.Rand) (*Game, error) {
	return q.FormGameQ(teamSize, ratingmath.DefaultUnfairnessExponent, now, rng)
}

// FormGameQ is FormGame with an explicit unfairness exponent q, so callers
// can thread the league's UNFUN_MOD override through team selection.
func (q *Queue) FormGameQ(teamSize, unfairnessExponent int, now time.Time, rng *rand.Rand) (*Game, error) {
	if teamSize <= 0 {
		return nil, gerrors.New(gerrors.KindNotEnoughPlayers, "matchmaker.FormGame", nil)
	}

	pool := q.Snapshot()
	want := 2 * teamSize
	if len(pool) < want {
		return nil, gerrors.ErrNotEnoughPlayers
	}

	candidates := weightedSample(pool, want, now, rng)

	best := bestSplit(candidates, teamSize, unfairnessExponent, rng)

	radiant := make([]Entry, teamSize)
	dire := make([]Entry, 0, teamSize)
	taken := make(map[int]bool, teamSize)
	for i, idx := range best.radiantIdx {
		radiant[i] = candidates[idx]
		taken[idx] = true
	}
	for i := range candidates {
		if !taken[i] {
			dire = append(dire, candidates[i])
		}
	}

	radiantRatings := ratingsOf(radiant)
	direRatings := ratingsOf(dire)

	game := &Game{
		Radiant:     radiant,
		Dire:        dire,
		RadiantMean: ratingmath.TeamRating(radiantRatings),
		DireMean:    ratingmath.TeamRating(direRatings),
		Unfairness:  ratingmath.UnfairnessQ(radiantRatings, direRatings, unfairnessExponent),
	}

	ids := make([]int64, 0, want)
	for _, e := range candidates {
		ids = append(ids, e.DiscordID)
	}
	q.removeMany(ids)

	log.Info("formed game: radiant=%v dire=%v unfairness=%.1f", idsOf(radiant), idsOf(dire), game.Unfairness)
	return game, nil
}

// Rebalance re-partitions an existing roster (the combined radiant+dire
// membership of an already-formed game) into the best-balanced split,
// without touching the queue. Used to re-run team selection in place after
// a replace() leaves a game lopsided.
func Rebalance(entries []Entry, teamSize, unfairnessExponent int, rng *rand.Rand) (*Game, error) {
	if teamSize <= 0 || len(entries) != 2*teamSize {
		return nil, gerrors.New(gerrors.KindNotEnoughPlayers, "matchmaker.Rebalance", nil)
	}

	best := bestSplit(entries, teamSize, unfairnessExponent, rng)

	radiant := make([]Entry, teamSize)
	dire := make([]Entry, 0, teamSize)
	taken := make(map[int]bool, teamSize)
	for i, idx := range best.radiantIdx {
		radiant[i] = entries[idx]
		taken[idx] = true
	}
	for i := range entries {
		if !taken[i] {
			dire = append(dire, entries[i])
		}
	}

	radiantRatings := ratingsOf(radiant)
	direRatings := ratingsOf(dire)

	return &Game{
		Radiant:     radiant,
		Dire:        dire,
		RadiantMean: ratingmath.TeamRating(radiantRatings),
		DireMean:    ratingmath.TeamRating(direRatings),
		Unfairness:  ratingmath.UnfairnessQ(radiantRatings, direRatings, unfairnessExponent),
	}, nil
}

// weightedSample draws `want` distinct players from pool, weighted by
// squared wait time, mirroring the original coordinator's
// random.choices(weights=wait_time**2) plus dedupe-and-backfill loop.
func weightedSample(pool []Entry, want int, now time.Time, rng *rand.Rand) []Entry {
	if want >= len(pool) {
		return append([]Entry{}, pool...)
	}

	weights := make([]float64, len(pool))
	for i, e := range pool {
		wait := now.Sub(e.JoinedAt).Seconds()
		if wait < 1 {
			wait = 1
		}
		weights[i] = wait * wait
	}

	chosen := make(map[int]bool, want)
	order := make([]int, 0, want)

	// Bound the number of draws: with replacement, duplicates are expected,
	// but queues smaller than a few hundred converge in well under 10*want
	// draws. The queue-order backfill below is the safety net for the rest.
	maxDraws := want * 20
	for draws := 0; draws < maxDraws && len(order) < want; draws++ {
		idx := weightedChoice(weights, rng)
		if !chosen[idx] {
			chosen[idx] = true
			order = append(order, idx)
		}
	}

	// Backfill from whatever is left, oldest first in queue order, if the
	// weighted draws didn't converge on enough distinct players.
	if len(order) < want {
		for i := range pool {
			if len(order) >= want {
				break
			}
			if !chosen[i] {
				chosen[i] = true
				order = append(order, i)
			}
		}
	}

	out := make([]Entry, want)
	for i, idx := range order {
		out[i] = pool[idx]
	}
	return out
}

// weightedChoice picks a single index with probability proportional to
// weights[i].
func weightedChoice(weights []float64, rng *rand.Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if r <= cum {
			return i
		}
	}
	return len(weights) - 1
}

// bestSplit enumerates every way to choose teamSize candidates out of the
// sampled pool for the radiant side, scores each split by unfairness plus
// the raw team-rating gap, and weighted-picks among the candidateSplits
// best. This mirrors the combinations(2T, T) + bounded 5-best heap +
// weighted-random-of-the-shortlist approach of the original coordinator.
func bestSplit(candidates []Entry, teamSize, unfairnessExponent int, rng *rand.Rand) split {
	n := len(candidates)
	h := &splitHeap{}
	heap.Init(h)

	combinations(n, teamSize, func(radiantIdx []int) {
		radiantRatings := ratingsOfIdx(candidates, radiantIdx)
		direIdx := complement(n, radiantIdx)
		direRatings := ratingsOfIdx(candidates, direIdx)

		unfairness := ratingmath.UnfairnessQ(radiantRatings, direRatings, unfairnessExponent)
		diff := math.Abs(ratingmath.TeamRating(radiantRatings) - ratingmath.TeamRating(direRatings))
		score := unfairness + diff

		idxCopy := append([]int{}, radiantIdx...)
		if h.Len() < candidateSplits {
			heap.Push(h, split{radiantIdx: idxCopy, score: score})
		} else if (*h)[0].score > score {
			heap.Pop(h)
			heap.Push(h, split{radiantIdx: idxCopy, score: score})
		}
	})

	return weightedPickSplit(*h, rng)
}

// weightedPickSplit chooses among the shortlisted splits, weighted toward
// lower scores, rather than always taking the single best split, so the
// matchmaker doesn't produce the exact same split every time for an
// identical queue snapshot.
func weightedPickSplit(candidates splitHeap, rng *rand.Rand) split {
	if len(candidates) == 1 {
		return candidates[0]
	}

	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = 1.0 / (c.score + 1e-6)
	}
	idx := weightedChoice(weights, rng)
	return candidates[idx]
}

// combinations calls fn once for every way to choose k indices out of
// [0, n), in ascending order within each combination.
func combinations(n, k int, fn func([]int)) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func complement(n int, chosen []int) []int {
	in := make(map[int]bool, len(chosen))
	for _, i := range chosen {
		in[i] = true
	}
	out := make([]int, 0, n-len(chosen))
	for i := 0; i < n; i++ {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}

func ratingsOf(entries []Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Rating
	}
	return out
}

func ratingsOfIdx(entries []Entry, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = entries[j].Rating
	}
	return out
}

func idsOf(entries []Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.DiscordID
	}
	return out
}
