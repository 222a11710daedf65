package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestEveryCounterHasADefinition(t *testing.T) {
	seen := make(map[goSession.MetricID]bool)
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate definition for metric %d", def.ID)
		}
		seen[def.ID] = true
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
	}
	for _, def := range HistogramDefs {
		seen[def.ID] = true
	}

	for id := goSession.MetricID(0); id < goSession.MetricIDCount; id++ {
		if !seen[id] {
			t.Fatalf("metric %d has no exporter definition", id)
		}
	}
}

func TestBoundsAgree(t *testing.T) {
	if len(HistogramBounds) != BucketCount || len(HistogramBoundSuffix) != BucketCount {
		t.Fatalf("bound tables must have %d entries", BucketCount)
	}
	if len(HistogramUpperBounds) != BucketCount-1 {
		t.Fatalf("expected %d finite bounds, got %d", BucketCount-1, len(HistogramUpperBounds))
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
