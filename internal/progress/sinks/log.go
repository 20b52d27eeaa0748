// Package sinks provides Sink implementations for the progress hub.
package sinks

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/onionwatch/onionwatch/internal/progress"
)

// LogSink renders batch summary lines for probe outcomes and per-address lines
// for scan outcomes. One Consume call corresponds to one reporting batch, so
// log volume stays bounded regardless of pool size.
type LogSink struct {
	logger *zap.Logger

	mu      sync.Mutex
	batches int
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs one summary line per probe batch and one line per scan event.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	checked, alive, dead := 0, 0, 0
	for _, evt := range batch {
		switch evt.Kind {
		case progress.KindProbe:
			checked++
			if evt.Outcome == progress.OutcomeAlive {
				alive++
			} else {
				dead++
			}
		case progress.KindScan:
			s.logScan(evt)
		}
	}
	if checked == 0 {
		return nil
	}

	s.mu.Lock()
	s.batches++
	batchNum := s.batches
	s.mu.Unlock()

	s.logger.Info("probe batch complete",
		zap.Int("batch", batchNum),
		zap.Int("checked", checked),
		zap.Int("alive", alive),
		zap.Int("dead", dead),
	)
	return nil
}

func (s *LogSink) logScan(evt progress.Event) {
	if evt.Outcome != progress.OutcomeMatch {
		s.logger.Debug("no keyword match", zap.String("address", evt.Address))
		return
	}
	title := evt.Title
	if title == "" {
		title = "N/A"
	}
	s.logger.Info("keyword match",
		zap.String("address", evt.Address),
		zap.String("title", title),
		zap.String("keywords", strings.Join(evt.Keywords, ", ")),
	)
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
