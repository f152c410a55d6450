package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint", "200")
	})
}

func TestTransitionCounters(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("approve", ResultRejected))
	IncTransition("approve", ResultRejected)
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("approve", ResultRejected)))

	beforeConflicts := testutil.ToFloat64(conflicts)
	IncConflict()
	assert.Equal(t, beforeConflicts+1, testutil.ToFloat64(conflicts))
}
