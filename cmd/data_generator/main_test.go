package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesValidMinuteBars(t *testing.T) {
	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	s := generate(rand.New(rand.NewSource(1)), "AAPL", start, 200, 100)

	require.Len(t, s.Bars, 200)
	assert.Equal(t, "AAPL", s.Symbol)
	for i, b := range s.Bars {
		require.NoError(t, b.Validate(), "bar %d", i)
		assert.Equal(t, start.Add(time.Duration(i)*time.Minute), b.Timestamp)
		assert.GreaterOrEqual(t, b.High, b.Low)
	}
}

func TestGenerateIsSeeded(t *testing.T) {
	start := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	a := generate(rand.New(rand.NewSource(7)), "X", start, 50, 100)
	b := generate(rand.New(rand.NewSource(7)), "X", start, 50, 100)
	assert.Equal(t, a, b)
}
