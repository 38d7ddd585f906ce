// Package factory instantiates pluggable modules (metrics sinks, audit stores,
// fairness ledgers) from configuration. A module is described by a type name
// and a raw settings map; each registered factory decodes the map into its own
// typed struct.
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	reg.Register("nop", func(map[string]any) (metrics.MetricsSink, error) {
//	    return metrics.NopSink{}, nil
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "nop"})
package factory
