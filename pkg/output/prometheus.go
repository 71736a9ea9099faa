package output

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/Sumatoshi-tech/testfang/pkg/measures"
	"github.com/Sumatoshi-tech/testfang/pkg/sensor"
)

const (
	promNamespace = "testfang"
	labelResource = "resource"
	labelMode     = "mode"
)

// writePrometheus exposes every numeric measure as a gauge labelled with the
// resource ("" for the project) in the text exposition format, ready for a
// node-exporter textfile collector or a pushgateway.
func writePrometheus(w io.Writer, res sensor.Result) error {
	registry := prometheus.NewRegistry()
	gauges := make(map[string]*prometheus.GaugeVec)

	for _, m := range measures.Catalog() {
		if m.Type == measures.TypeData {
			continue
		}

		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      m.Key,
			Help:      m.Description,
		}, []string{labelMode, labelResource})

		err := registry.Register(vec)
		if err != nil {
			return fmt.Errorf("register %s: %w", m.Key, err)
		}

		gauges[m.Key] = vec
	}

	for _, rec := range res.Records {
		for _, m := range rec.Measures {
			vec, ok := gauges[m.Metric.Key]
			if !ok {
				continue
			}

			vec.WithLabelValues(string(res.Mode), rec.Resource).Set(m.Value)
		}
	}

	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gather measures: %w", err)
	}

	for _, mf := range families {
		_, err = expfmt.MetricFamilyToText(w, mf)
		if err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}

	return nil
}
