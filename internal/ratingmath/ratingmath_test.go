// File: internal/ratingmath/ratingmath_test.go
// Project: Gargamel League Matchmaker
// Description: Tests for rating aggregation and Elo update math
// Version: 1.0.0

package ratingmath

import (
	"math"
	"testing"
)

func TestPowerMean_UniformRatings(t *testing.T) {
	got := PowerMean([]int{1000, 1000, 1000}, PowerMeanExponent)
	if math.Abs(got-1000) > 0.001 {
		t.Fatalf("expected 1000 for uniform ratings, got %f", got)
	}
}

func TestPowerMean_FavorsHigherRatings(t *testing.T) {
	low := PowerMean([]int{900, 1100}, PowerMeanExponent)
	arithmeticMean := 1000.0
	if low <= arithmeticMean {
		t.Fatalf("power mean with p=5 should exceed arithmetic mean, got %f <= %f", low, arithmeticMean)
	}
}

func TestPowerMean_Empty(t *testing.T) {
	if got := PowerMean(nil, PowerMeanExponent); got != 0 {
		t.Fatalf("expected 0 for empty input, got %f", got)
	}
}

func TestUnfairness_IdenticalTeamsIsZero(t *testing.T) {
	got := Unfairness([]int{1000, 1100, 1200}, []int{1200, 1100, 1000})
	if got != 0 {
		t.Fatalf("expected 0 unfairness for rank-matched identical teams, got %f", got)
	}
}

func TestUnfairness_LopsidedIsPositive(t *testing.T) {
	fair := Unfairness([]int{1000, 1000}, []int{1000, 1000})
	lopsided := Unfairness([]int{1500, 1000}, []int{1000, 500})
	if lopsided <= fair {
		t.Fatalf("expected lopsided split to score higher than fair split: %f <= %f", lopsided, fair)
	}
}

func TestExpectedScore_EvenMatchIsHalf(t *testing.T) {
	got := ExpectedScore(1000, 1000)
	if math.Abs(got-0.5) > 0.0001 {
		t.Fatalf("expected 0.5 for an even matchup, got %f", got)
	}
}

func TestUpdateTeam_WinnersGainLosersLose(t *testing.T) {
	winners := UpdateTeam([]int{1000, 1000}, 1000, 1000, true, 32)
	losers := UpdateTeam([]int{1000, 1000}, 1000, 1000, false, 32)

	for _, r := range winners {
		if r <= 1000 {
			t.Fatalf("expected winners to gain rating, got %d", r)
		}
	}
	for _, r := range losers {
		if r >= 1000 {
			t.Fatalf("expected losers to lose rating, got %d", r)
		}
	}
}

func TestUpdateTeam_UnderdogWinGainsMore(t *testing.T) {
	underdogWin := UpdateTeam([]int{900}, 900, 1300, true, 32)[0] - 900
	favoriteWin := UpdateTeam([]int{1300}, 1300, 900, true, 32)[0] - 1300

	if underdogWin <= favoriteWin {
		t.Fatalf("expected underdog win to gain more than favorite win: %d <= %d", underdogWin, favoriteWin)
	}
}
