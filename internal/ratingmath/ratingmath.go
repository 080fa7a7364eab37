// File: internal/ratingmath/ratingmath.go
// Project: Gargamel League Matchmaker
// Description: Team rating aggregation, fairness scoring and Elo updates
// Version: 1.0.0

// Package ratingmath implements the pure numeric core of the matchmaker:
// aggregating individual ratings into a team rating, scoring how fair a
// proposed split is, and updating individual ratings after a game finishes.
package ratingmath

import "math"

// PowerMeanExponent is the exponent p used by PowerMean, matching the
// original league's skill aggregation (it favors a team's strongest
// players more than a plain average would).
const PowerMeanExponent = 5

// DefaultUnfairnessExponent is the exponent q used by Unfairness's
// rank-matched L_q distance between two teams when a caller has no
// configured override (UNFUN_MOD).
const DefaultUnfairnessExponent = 2

// DefaultEloDivisor is the Elo divisor D used when a caller does not
// override it.
const DefaultEloDivisor = 3322.0

// PowerMean computes M_p(R) = (sum(r_i^p) / n) ^ (1/p) for the given
// ratings. Returns 0 for an empty slice.
func PowerMean(ratings []int, p int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += math.Pow(float64(r), float64(p))
	}
	mean := sum / float64(len(ratings))
	return math.Pow(mean, 1.0/float64(p))
}

// TeamRating aggregates a roster's ratings using the league's standard
// power mean (p=5).
func TeamRating(ratings []int) float64 {
	return PowerMean(ratings, PowerMeanExponent)
}

// Unfairness scores how lopsided a proposed team split is using the
// default exponent. Most production call sites thread a configured q
// through UnfairnessQ instead; this wrapper exists for tests and callers
// that don't care about the league's UNFUN_MOD override.
func Unfairness(teamA, teamB []int) float64 {
	return UnfairnessQ(teamA, teamB, DefaultUnfairnessExponent)
}

// UnfairnessQ scores how lopsided a proposed team split is. Each team's
// ratings are sorted descending and compared rank-by-rank (the team's best
// player against the other team's best player, and so on), then combined
// with an L_q distance. Lower is fairer; zero means every rank pairing is
// tied. The two slices must be the same length.
func UnfairnessQ(teamA, teamB []int, q int) float64 {
	if len(teamA) != len(teamB) || len(teamA) == 0 {
		return 0
	}
	if q <= 0 {
		q = DefaultUnfairnessExponent
	}

	sortedA := sortedDescending(teamA)
	sortedB := sortedDescending(teamB)

	var sum float64
	for i := range sortedA {
		diff := math.Abs(float64(sortedA[i] - sortedB[i]))
		sum += math.Pow(diff, float64(q))
	}
	return math.Pow(sum, 1.0/float64(q))
}

func sortedDescending(ratings []int) []int {
	out := make([]int, len(ratings))
	copy(out, ratings)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] < out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ExpectedScore returns the probability that a team with rating ratingA
// beats a team with rating ratingB under the logistic Elo model, using the
// league's divisor (default DefaultEloDivisor).
func ExpectedScore(ratingA, ratingB float64) float64 {
	return ExpectedScoreD(ratingA, ratingB, DefaultEloDivisor)
}

// ExpectedScoreD is ExpectedScore with an explicit divisor D.
func ExpectedScoreD(ratingA, ratingB, divisor float64) float64 {
	if divisor <= 0 {
		divisor = DefaultEloDivisor
	}
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/divisor))
}

// UpdateTeam computes the new individual ratings for every player on a team
// after a game, given the team's aggregate rating, the opposing team's
// aggregate rating, the configured K-factor, and whether this team won.
// Every player on the team receives the same delta, scaled by the team
// aggregate's expected score, mirroring a team-vs-team Elo update rather
// than an individual one.
func UpdateTeam(playerRatings []int, teamRating, opponentRating float64, won bool, k int) []int {
	return UpdateTeamD(playerRatings, teamRating, opponentRating, won, k, DefaultEloDivisor)
}

// UpdateTeamD is UpdateTeam with an explicit Elo divisor D.
func UpdateTeamD(playerRatings []int, teamRating, opponentRating float64, won bool, k int, divisor float64) []int {
	expected := ExpectedScoreD(teamRating, opponentRating, divisor)
	actual := 0.0
	if won {
		actual = 1.0
	}
	delta := int(math.Round(float64(k) * (actual - expected)))

	updated := make([]int, len(playerRatings))
	for i, r := range playerRatings {
		updated[i] = r + delta
	}
	return updated
}
