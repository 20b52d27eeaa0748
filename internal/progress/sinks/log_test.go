package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/onionwatch/onionwatch/internal/progress"
)

// TestLogSinkSummarizesProbeBatch checks one summary line is emitted per batch
// with the alive/dead split.
func TestLogSinkSummarizesProbeBatch(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	runID := uuid.New()

	batch := []progress.Event{
		probeEvent(runID, progress.OutcomeAlive),
		probeEvent(runID, progress.OutcomeAlive),
		probeEvent(runID, progress.OutcomeDead),
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	entries := logs.FilterMessage("probe batch complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.EqualValues(t, 1, fields["batch"])
	require.EqualValues(t, 3, fields["checked"])
	require.EqualValues(t, 2, fields["alive"])
	require.EqualValues(t, 1, fields["dead"])

	// A second batch increments the running batch number.
	require.NoError(t, sink.Consume(context.Background(), batch[:1]))
	entries = logs.FilterMessage("probe batch complete").All()
	require.Len(t, entries, 2)
	require.EqualValues(t, 2, entries[1].ContextMap()["batch"])
}

// TestLogSinkScanMatchLine checks matched scans log title and keywords while
// misses stay below Info.
func TestLogSinkScanMatchLine(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	runID := uuid.New()

	match := progress.Event{
		RunID:    runID,
		TS:       time.Now(),
		Kind:     progress.KindScan,
		Outcome:  progress.OutcomeMatch,
		Address:  "http://matchedonionaddress.onion",
		Keywords: []string{"market", "forum"},
	}
	miss := match
	miss.Outcome = progress.OutcomeMiss
	miss.Keywords = nil

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{match, miss}))

	entries := logs.FilterMessage("keyword match").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "market, forum", fields["keywords"])
	require.Equal(t, "N/A", fields["title"])
	require.Empty(t, logs.FilterMessage("no keyword match").All())
}

func probeEvent(runID uuid.UUID, outcome progress.Outcome) progress.Event {
	return progress.Event{
		RunID:   runID,
		TS:      time.Now(),
		Kind:    progress.KindProbe,
		Outcome: outcome,
		Address: "http://probedonionaddress12.onion",
	}
}
