package internaldefs

import (
	"strings"
	"testing"

	mkclient "github.com/MrEthical07/mkclient"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[mkclient.MetricID]bool)
	names := make(map[string]bool)
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] || !strings.HasPrefix(def.Name, "mkclient_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %q", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := mkclient.MetricLoginSuccess; id < mkclient.MetricRequestLatency; id++ {
		if !seen[id] {
			t.Fatalf("metric %d has no counter definition", id)
		}
	}
	if seen[mkclient.MetricRequestLatency] {
		t.Fatal("latency is a histogram, not a counter")
	}
}

func TestBucketHelpers(t *testing.T) {
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("every finite bound plus +Inf needs a suffix")
	}
	norm := NormalizeBuckets([]uint64{1, 2})
	if norm != [8]uint64{1, 2} {
		t.Fatalf("unexpected normalized buckets %v", norm)
	}
	cum := CumulativeBuckets([8]uint64{1, 2, 3, 4, 5, 6, 7, 8})
	if cum[0] != 1 || cum[7] != 36 {
		t.Fatalf("unexpected cumulative buckets %v", cum)
	}
}
