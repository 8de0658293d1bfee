package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atishaytuli/YURL/internal/types"
)

func eventsForCountries(counts map[string]int) []types.ClickEvent {
	events := []types.ClickEvent{}
	for country, n := range counts {
		for i := 0; i < n; i++ {
			events = append(events, types.ClickEvent{Country: country, Device: types.DeviceDesktop})
		}
	}
	return events
}

func TestGeoBreakdown(t *testing.T) {
	t.Run("folds the tail past seven countries", func(t *testing.T) {
		counts := map[string]int{}
		for i, n := range []int{10, 9, 8, 7, 6, 5, 4, 3, 2} {
			counts[fmt.Sprintf("Country%d", i)] = n
		}

		buckets := GeoBreakdown(eventsForCountries(counts))

		require.Len(t, buckets, 7)
		assert.Equal(t, "Other", buckets[6].Label, "folded bucket must come last")
		assert.Equal(t, 4+3+2, buckets[6].Count)
		for i := 0; i < 6; i++ {
			assert.NotEqual(t, "Other", buckets[i].Label)
		}
		// Descending by count among the kept buckets.
		for i := 1; i < 6; i++ {
			assert.GreaterOrEqual(t, buckets[i-1].Count, buckets[i].Count)
		}
		// Other stays last even though its count (9) beats several
		// kept buckets.
		assert.Greater(t, buckets[6].Count, buckets[5].Count)
	})

	t.Run("no folding at seven or fewer", func(t *testing.T) {
		counts := map[string]int{"A": 5, "B": 4, "C": 3, "D": 3, "E": 2, "F": 1, "G": 1}
		buckets := GeoBreakdown(eventsForCountries(counts))

		require.Len(t, buckets, 7)
		for _, b := range buckets {
			assert.NotEqual(t, "Other", b.Label)
		}
	})

	t.Run("shares sum over the total", func(t *testing.T) {
		counts := map[string]int{"A": 3, "B": 1}
		buckets := GeoBreakdown(eventsForCountries(counts))

		require.Len(t, buckets, 2)
		assert.InDelta(t, 0.75, buckets[0].Share, 1e-9)
		assert.InDelta(t, 0.25, buckets[1].Share, 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, GeoBreakdown(nil))
	})
}

func TestDeviceBreakdown(t *testing.T) {
	t.Run("unrecognized values fold to other", func(t *testing.T) {
		events := []types.ClickEvent{
			{Device: "mobile"},
			{Device: "mobile"},
			{Device: "ipad"},
			{Device: ""},
			{Device: "smartfridge"},
		}

		buckets := DeviceBreakdown(events)

		require.Len(t, buckets, 2)
		assert.Equal(t, types.Bucket{Label: "other", Count: 3, Share: 0.6}, buckets[0])
		assert.Equal(t, types.Bucket{Label: "mobile", Count: 2, Share: 0.4}, buckets[1])
	})

	t.Run("case-insensitive normalization", func(t *testing.T) {
		events := []types.ClickEvent{{Device: "Desktop"}, {Device: "desktop"}}
		buckets := DeviceBreakdown(events)

		require.Len(t, buckets, 1)
		assert.Equal(t, "desktop", buckets[0].Label)
		assert.Equal(t, 2, buckets[0].Count)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, DeviceBreakdown(nil))
	})
}
