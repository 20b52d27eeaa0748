package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/onionwatch/onionwatch/internal/progress"
)

// TestPrometheusSinkCountsOutcomes verifies probe and scan counters advance.
func TestPrometheusSinkCountsOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := uuid.New()
	batch := []progress.Event{
		probeEvent(runID, progress.OutcomeAlive),
		probeEvent(runID, progress.OutcomeDead),
		{
			RunID:   runID,
			TS:      time.Now(),
			Kind:    progress.KindScan,
			Outcome: progress.OutcomeMatch,
			Address: "http://matchedonionaddress.onion",
		},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, float64(1), testutil.ToFloat64(sink.probesTotal.WithLabelValues("alive")))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.probesTotal.WithLabelValues("dead")))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.scansTotal.WithLabelValues("match")))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.batchesTotal))
}

// TestPrometheusSinkScanOnlyBatchSkipsBatchCounter ensures scan batches do not
// inflate the probe batch counter.
func TestPrometheusSinkScanOnlyBatchSkipsBatchCounter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	batch := []progress.Event{{
		RunID:   uuid.New(),
		TS:      time.Now(),
		Kind:    progress.KindScan,
		Outcome: progress.OutcomeMiss,
		Address: "http://missedonionaddress1.onion",
	}}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, float64(0), testutil.ToFloat64(sink.batchesTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.scansTotal.WithLabelValues("miss")))
}

// TestPrometheusSinkDoubleRegisterFails surfaces registry conflicts.
func TestPrometheusSinkDoubleRegisterFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
