// Package metrics provides the observability hooks for emailbuilder runs.
//
// Components receive a Recorder through dependency injection. NoopRecorder is the
// default so the build pipeline never checks for nil; the Prometheus implementation
// is wired in by the watch command when --metrics-addr is set:
//
//	reg := prom.NewRegistry()
//	recorder := metrics.NewPrometheusRecorder(reg)
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
