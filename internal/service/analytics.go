package service

import (
	"sort"
	"strings"

	"github.com/atishaytuli/YURL/internal/types"
)

// maxGeoBuckets caps the geography breakdown: past this many distinct
// countries, everything after the top six folds into one Other bucket.
const maxGeoBuckets = 7

// DeviceBreakdown groups events by device class, folding unrecognized
// or missing values into "other". Buckets are sorted by count
// descending, label ascending on ties, and carry their share of the
// total event count.
func DeviceBreakdown(events []types.ClickEvent) []types.Bucket {
	counts := make(map[string]int)
	for _, event := range events {
		counts[normalizeDevice(event.Device)]++
	}
	buckets := toBuckets(counts, len(events))
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

// GeoBreakdown groups events by country, sorted by count descending.
// With more than seven distinct countries the top six are kept and the
// tail folds into a trailing "Other" bucket that sums the rest and
// stays last regardless of its count.
func GeoBreakdown(events []types.ClickEvent) []types.Bucket {
	counts := make(map[string]int)
	for _, event := range events {
		country := event.Country
		if country == "" {
			country = "Unknown"
		}
		counts[country]++
	}

	buckets := toBuckets(counts, len(events))
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})

	if len(buckets) <= maxGeoBuckets {
		return buckets
	}

	total := len(events)
	kept := buckets[:maxGeoBuckets-1]
	folded := 0
	for _, b := range buckets[maxGeoBuckets-1:] {
		folded += b.Count
	}
	return append(kept, types.Bucket{
		Label: "Other",
		Count: folded,
		Share: share(folded, total),
	})
}

func normalizeDevice(device string) string {
	switch strings.ToLower(device) {
	case types.DeviceMobile, types.DeviceTablet, types.DeviceDesktop:
		return strings.ToLower(device)
	default:
		return types.DeviceOther
	}
}

func toBuckets(counts map[string]int, total int) []types.Bucket {
	buckets := make([]types.Bucket, 0, len(counts))
	for label, count := range counts {
		buckets = append(buckets, types.Bucket{
			Label: label,
			Count: count,
			Share: share(count, total),
		})
	}
	return buckets
}

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
