/*
Package observability turns workflow lifecycle hooks into Prometheus metrics.

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	wf, err := davinci.New(cfg, davinci.WithLifecycleHooks(m.Hooks()))

Nodes are counted by kind, round trips by method and outcome, and round trip
latency is recorded as a histogram.
*/
package observability
