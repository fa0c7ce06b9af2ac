package growth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectedValue(t *testing.T) {
	assert.Equal(t, 100, ProjectedValue(100, 0))
	assert.Equal(t, 102, ProjectedValue(100, 1))
	assert.Equal(t, 104, ProjectedValue(100, 2))    // floor(104.04)
	assert.Equal(t, 110, ProjectedValue(102, 4))    // truncation, not rounding
	assert.Equal(t, 280, ProjectedValue(100, 52))   // ~2.8x over a year
	assert.Equal(t, 0, ProjectedValue(0, 52))
}

func TestProjections(t *testing.T) {
	p := Projections(100)
	assert.Equal(t, Projection{OneMonth: 108, SixMonths: 167, OneYear: 280}, p)
}

func TestGrowthPercentage(t *testing.T) {
	assert.Equal(t, 0, GrowthPercentage(0, 500), "zero principal never divides")
	assert.Equal(t, 0, GrowthPercentage(100, 100))
	assert.Equal(t, 50, GrowthPercentage(100, 150))
	assert.Equal(t, -50, GrowthPercentage(100, 50))
	assert.Equal(t, 2, GrowthPercentage(50, 51))
}

func TestWhatIfGrow(t *testing.T) {
	assert.Nil(t, WhatIfGrow(nil))

	// Week 1 seeds the timeline with the full total.
	got := WhatIfGrow([]Point{{Spend: 60, Grow: 40}})
	assert.Equal(t, []int{100}, got)

	// Week 2: total rises 100 -> 120, real interest on 40 grow is 0.8,
	// inferred earnings 19.2; what-if = floor(100*1.02 + 19.2) = 121.
	got = WhatIfGrow([]Point{
		{Spend: 60, Grow: 40},
		{Spend: 79, Grow: 41},
	})
	assert.Equal(t, []int{100, 121}, got)

	// A spending week produces no negative earnings; the timeline only
	// compounds.
	got = WhatIfGrow([]Point{
		{Spend: 100, Grow: 0},
		{Spend: 20, Grow: 0},
		{Spend: 20, Grow: 0},
	})
	assert.Equal(t, []int{100, 102, 104}, got)
}

func TestWhatIfGrowNeverDecreases(t *testing.T) {
	history := []Point{
		{Spend: 100, Grow: 50},
		{Spend: 40, Grow: 51},
		{Spend: 90, Grow: 52},
		{Spend: 10, Grow: 104},
		{Spend: 10, Grow: 106},
	}
	series := WhatIfGrow(history)
	for i := 1; i < len(series); i++ {
		assert.GreaterOrEqual(t, series[i], series[i-1])
	}
}
