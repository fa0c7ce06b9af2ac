// Package growth computes compound growth projections and what-if allocation
// simulations over a balance history. Reporting only; nothing here feeds back
// into real balances.
package growth

import "math"

// WeeklyRate is the compounding rate applied to grow balances each week.
const WeeklyRate = 0.02

// Fixed projection horizons, in weeks.
const (
	HorizonOneMonth  = 4
	HorizonSixMonths = 26
	HorizonOneYear   = 52
)

// Projection holds projected grow balances at the three fixed horizons.
type Projection struct {
	OneMonth  int `json:"oneMonth"`
	SixMonths int `json:"sixMonths"`
	OneYear   int `json:"oneYear"`
}

// ProjectedValue returns the principal compounded weekly for the given number
// of weeks, truncated to an integer token count.
func ProjectedValue(principal, weeks int) int {
	return int(math.Floor(float64(principal) * math.Pow(1+WeeklyRate, float64(weeks))))
}

// Projections returns the 1 month / 6 months / 1 year projections for a grow
// balance.
func Projections(principal int) Projection {
	return Projection{
		OneMonth:  ProjectedValue(principal, HorizonOneMonth),
		SixMonths: ProjectedValue(principal, HorizonSixMonths),
		OneYear:   ProjectedValue(principal, HorizonOneYear),
	}
}

// GrowthPercentage returns the truncated percentage gain from principal to
// future. Zero principal yields zero rather than dividing by zero.
func GrowthPercentage(principal, future int) int {
	if principal == 0 {
		return 0
	}
	return int(math.Floor(float64(future-principal) / float64(principal) * 100))
}

// Point is one week of a student's (spend, grow) balances, ordered oldest
// first.
type Point struct {
	Spend int
	Grow  int
}

// WhatIfGrow reconstructs an alternate timeline in which every inferred weekly
// earning had been deposited into grow at the same weekly compounding rate.
// Weekly earnings are inferred from the change in spend+grow totals minus the
// interest the real grow balance earned, clamped to zero so withdrawals and
// purchases don't produce negative artifacts. The result has one value per
// input point.
func WhatIfGrow(history []Point) []int {
	if len(history) == 0 {
		return nil
	}

	result := make([]int, len(history))
	prevTotal := 0
	prevGrow := 0
	whatIf := 0.0

	for i, point := range history {
		total := point.Spend + point.Grow

		var earnings float64
		if i == 0 {
			earnings = float64(total)
		} else {
			earnings = float64(total-prevTotal) - float64(prevGrow)*WeeklyRate
		}
		if earnings < 0 {
			earnings = 0
		}

		whatIf = math.Floor(whatIf*(1+WeeklyRate) + earnings)
		result[i] = int(whatIf)

		prevTotal = total
		prevGrow = point.Grow
	}
	return result
}
