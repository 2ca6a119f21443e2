package export

import (
	"errors"
	"io"
	"time"
)

// ProgressFunc is invoked with the running record count at a fixed interval
// so callers can render progress without the core knowing about terminals.
type ProgressFunc func(processed int)

// ProgressInterval is how many records pass between progress callbacks.
const ProgressInterval = 100

// StatsAccumulator folds conversations into aggregate statistics in O(1)
// memory. No conversation is retained after its fold step.
type StatsAccumulator struct {
	stats ExportStatistics
}

// NewStatsAccumulator returns an empty accumulator for one pass.
func NewStatsAccumulator() *StatsAccumulator {
	return &StatsAccumulator{}
}

// Update folds one conversation into the aggregate.
func (a *StatsAccumulator) Update(c *Conversation) {
	s := &a.stats
	n := c.MessageCount()

	s.TotalConversations++
	s.TotalMessages += n

	if s.TotalConversations == 1 {
		s.LargestID, s.LargestMessageCount = c.ID, n
		s.SmallestID, s.SmallestMessageCount = c.ID, n
	} else {
		if n > s.LargestMessageCount || (n == s.LargestMessageCount && c.ID < s.LargestID) {
			s.LargestID, s.LargestMessageCount = c.ID, n
		}
		if n < s.SmallestMessageCount || (n == s.SmallestMessageCount && c.ID < s.SmallestID) {
			s.SmallestID, s.SmallestMessageCount = c.ID, n
		}
	}

	a.widen(c.CreatedAt)
	a.widen(c.UpdatedAt)
	for i := range c.Turns {
		a.widen(c.Turns[i].Timestamp)
	}
}

// Skip records one malformed entry dropped by the assembler.
func (a *StatsAccumulator) Skip() {
	a.stats.SkippedMalformed++
}

func (a *StatsAccumulator) widen(t time.Time) {
	if t.IsZero() {
		return
	}
	s := &a.stats
	if s.EarliestTimestamp.IsZero() || t.Before(s.EarliestTimestamp) {
		s.EarliestTimestamp = t
	}
	if s.LatestTimestamp.IsZero() || t.After(s.LatestTimestamp) {
		s.LatestTimestamp = t
	}
}

// Finalize computes derived fields and returns the aggregate. The
// accumulator must not be updated afterwards.
func (a *StatsAccumulator) Finalize() ExportStatistics {
	s := a.stats
	if s.TotalConversations > 0 {
		s.AverageMessages = float64(s.TotalMessages) / float64(s.TotalConversations)
	}
	return s
}

// CalculateStatistics drives one full pass over the reader and folds every
// record into an ExportStatistics. Malformed entries are counted and
// skipped; structural parse errors abort the pass with no partial result.
func CalculateStatistics(r *Reader, progress ProgressFunc) (ExportStatistics, error) {
	acc := NewStatsAccumulator()
	it := r.Conversations()

	for {
		conv, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var malformed *MalformedEntryError
		if errors.As(err, &malformed) {
			acc.Skip()
		} else if err != nil {
			return ExportStatistics{}, err
		} else {
			acc.Update(conv)
		}

		if progress != nil && it.Processed()%ProgressInterval == 0 {
			progress(it.Processed())
		}
	}

	return acc.Finalize(), nil
}
