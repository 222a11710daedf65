package prometheus

import (
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	promclient "github.com/prometheus/client_golang/prometheus"
)

type collector struct {
	source     MetricsSource
	counters   []*promclient.Desc
	histograms []*promclient.Desc
	dropped    *promclient.Desc
}

// Collector returns a client_golang Collector reading the same snapshot as
// Render. Register it on a caller-owned registry.
func (p *Exporter) Collector() promclient.Collector {
	c := &collector{
		source:     p.source,
		counters:   make([]*promclient.Desc, len(internaldefs.CounterDefs)),
		histograms: make([]*promclient.Desc, len(internaldefs.HistogramDefs)),
		dropped:    promclient.NewDesc(auditDroppedName, auditDroppedHelp, nil, nil),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = promclient.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = promclient.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

func (c *collector) Describe(ch chan<- *promclient.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.dropped
}

func (c *collector) Collect(ch chan<- promclient.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- promclient.MustNewConstMetric(c.counters[i], promclient.CounterValue, float64(snapshot.Counters[def.ID]))
	}
	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[j]
		}
		ch <- promclient.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], snapshot.Sums[def.ID], buckets)
	}
	ch <- promclient.MustNewConstMetric(c.dropped, promclient.CounterValue, float64(c.source.AuditDropped()))
}
