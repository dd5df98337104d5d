package wheel

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

type fixedSource int64

func (f fixedSource) Int64N(int64) int64 { return int64(f) }

func TestResolve(t *testing.T) {
	weights := map[string]int64{"a": 1, "b": 2, "c": 3}

	tests := []struct {
		name string
		draw int64
		want string
	}{
		{name: "first slot", draw: 0, want: "a"},
		{name: "second slot start", draw: 1, want: "b"},
		{name: "second slot end", draw: 2, want: "b"},
		{name: "last slot", draw: 5, want: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(weights, fixedSource(tt.draw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_InvalidWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights map[string]int64
	}{
		{name: "empty wheel", weights: map[string]int64{}},
		{name: "zero total", weights: map[string]int64{"a": 0, "b": 0}},
		{name: "negative weight", weights: map[string]int64{"a": 5, "b": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.weights, fixedSource(0))
			assert.True(t, errors.Is(err, domain.ErrConfig))
		})
	}
}

func TestResolve_ZeroWeightNeverDrawn(t *testing.T) {
	weights := map[string]int64{"a": 0, "b": 1}
	for draw := int64(0); draw < 1; draw++ {
		got, err := Resolve(weights, fixedSource(draw))
		require.NoError(t, err)
		assert.Equal(t, "b", got)
	}
}

func TestResolve_Frequencies(t *testing.T) {
	weights := domain.DefaultEconomyConfig().WheelWeights
	var total int64
	for _, w := range weights {
		total += w
	}

	const draws = 100_000
	src := rand.New(rand.NewPCG(42, 1024))
	counts := make(map[string]int, len(weights))
	for i := 0; i < draws; i++ {
		label, err := Resolve(weights, src)
		require.NoError(t, err)
		counts[label]++
	}

	for label, w := range weights {
		p := float64(w) / float64(total)
		expected := p * draws
		// five standard deviations of the binomial count
		tolerance := 5 * math.Sqrt(draws*p*(1-p))
		assert.InDelta(t, expected, float64(counts[label]), tolerance, "label %s", label)
	}
}

func TestCryptoSource(t *testing.T) {
	src := CryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Int64N(7)
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(7))
	}
}

func TestCoins(t *testing.T) {
	rewards := domain.DefaultEconomyConfig().Rewards

	tests := []struct {
		outcome string
		want    int64
	}{
		{outcome: "2", want: 2},
		{outcome: "10", want: 10},
		{outcome: "50", want: 50},
		{outcome: "jackpot", want: 100},
		{outcome: "bonusSpin", want: 0},
		{outcome: "tryAgain", want: 0},
		{outcome: "mystery", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			assert.Equal(t, tt.want, Coins(tt.outcome, rewards))
		})
	}
}

func TestCoins_ClampedToSpinRange(t *testing.T) {
	rewards := domain.Rewards{Spin: domain.SpinReward{Base: 5, Min: 1, Max: 100}}
	assert.Equal(t, int64(100), Coins("50", rewards))
}
