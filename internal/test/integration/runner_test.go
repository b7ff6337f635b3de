package integration

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-sif/tally"
	"github.com/stretchr/testify/require"
)

// generateMeasurements produces numRecords random records over numKeys keys
func generateMeasurements(seed int64, numRecords int, numKeys int) []byte {
	rng := rand.New(rand.NewSource(seed))
	var sb strings.Builder
	for i := 0; i < numRecords; i++ {
		fmt.Fprintf(&sb, "station-%03d;%.1f\n", rng.Intn(numKeys), rng.Float64()*200-100)
	}
	return []byte(sb.String())
}

// requireSameStatistics verifies that two global mappings agree, allowing for differences in summation order
func requireSameStatistics(t *testing.T, expected tally.Accumulator, actual tally.Accumulator) {
	require.Equal(t, expected.Len(), actual.Len())
	err := expected.ForEach(func(key string, e *tally.Statistics) error {
		a, ok := actual.Get([]byte(key))
		require.True(t, ok, "missing key %s", key)
		require.Equal(t, e.Count, a.Count, key)
		require.Equal(t, e.Min, a.Min, key)
		require.Equal(t, e.Max, a.Max, key)
		require.InDelta(t, e.Sum, a.Sum, 1e-6, key)
		return nil
	})
	require.Nil(t, err)
}

func requireStatistics(t *testing.T, acc tally.Accumulator, key string, min, max, sum float64, count uint64) {
	stats, ok := acc.Get([]byte(key))
	require.True(t, ok, "missing key %s", key)
	require.Equal(t, min, stats.Min)
	require.Equal(t, max, stats.Max)
	require.InDelta(t, sum, stats.Sum, 1e-9)
	require.Equal(t, count, stats.Count)
}

func totalCount(t *testing.T, acc tally.Accumulator) uint64 {
	var total uint64
	require.Nil(t, acc.ForEach(func(key string, stats *tally.Statistics) error {
		total += stats.Count
		return nil
	}))
	return total
}
