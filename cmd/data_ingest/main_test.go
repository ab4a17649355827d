package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalMinutes(t *testing.T) {
	n, err := intervalMinutes("5m")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = intervalMinutes("15m")
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	for _, bad := range []string{"5", "m", "1h", ""} {
		_, err := intervalMinutes(bad)
		assert.Error(t, err, bad)
	}
}
