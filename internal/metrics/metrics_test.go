package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The default registry already carries the Go and process collectors from
// client_golang's own init, so InitMetrics must register only the
// application metrics. Re-registering a runtime collector panics.
func TestInitMetricsUsesDefaultRuntimeCollectors(t *testing.T) {
	InitMetrics()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	assert.True(t, names["go_goroutines"], "runtime metrics exposed without explicit registration")
	assert.True(t, names["http_requests_in_flight"])
	assert.True(t, names["users_registered_total"])
}
