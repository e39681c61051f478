// Package ingest drives the one-directional sync against the remote match
// API: pull the page after the stored high-water mark, filter, deduplicate,
// persist, and serve random samples back out of the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"

	"match-harvester/internal/match"
	"match-harvester/internal/report"
	"match-harvester/internal/steam"
)

// DefaultSampleCount is how many matches SampleRandom returns when the
// caller does not say.
const DefaultSampleCount = 10

// ErrIngestInProgress is returned when IngestNewMatches is called while a
// previous run is still going. Runs must be serialized: concurrent runs
// would race on the sequence cursor and double-process the same page.
var ErrIngestInProgress = errors.New("ingestion run already in progress")

// HistoryFetcher is the slice of the API client the manager needs.
// Note: separate from steam.Client so it can be mocked in tests.
type HistoryFetcher interface {
	GetMatchHistoryBySequenceNum(ctx context.Context, startSeq int64) ([]steam.MatchPayload, error)
}

// Config holds manager configuration.
type Config struct {
	// StartSequence is the cursor used when the store is empty.
	StartSequence int64
	// Debug logs the reason each invalid match was rejected.
	Debug bool
}

// Manager orchestrates ingestion cycles and answers read-path queries.
// All collaborators are injected; the manager keeps no state between
// cycles other than the seen-filter fast path.
type Manager struct {
	fetcher  HistoryFetcher
	store    match.Store
	reporter report.Reporter
	cfg      Config

	// seen holds a superset of the stored match IDs: primed from the
	// store on the first cycle and extended on every successful save.
	// A miss therefore means the match is new; a hit is only a hint and
	// is settled by the store existence check before anything is skipped.
	seen   *bloom.BloomFilter
	primed bool

	running atomic.Bool

	// Stats (atomic for the daemon's summary output)
	ingested       atomic.Int64
	skippedInvalid atomic.Int64
	skippedDup     atomic.Int64
}

// NewManager creates a Manager. The fetcher may be nil for read-only use
// (sampling and cursor queries only).
func NewManager(fetcher HistoryFetcher, store match.Store, reporter report.Reporter, cfg Config) *Manager {
	if reporter == nil {
		reporter = report.LogReporter{}
	}
	return &Manager{
		fetcher:  fetcher,
		store:    store,
		reporter: reporter,
		cfg:      cfg,
		seen:     bloom.NewWithEstimates(500000, 0.001),
	}
}

// CurrentMaxSequenceNumber returns the ingestion high-water mark. The
// second return value is false when the store is empty.
func (m *Manager) CurrentMaxSequenceNumber(ctx context.Context) (int64, bool, error) {
	return m.store.MaxSequenceNumber(ctx)
}

// IngestNewMatches runs one ingestion cycle: fetch the page after the
// current cursor, validate each payload, skip what is already stored, and
// persist the rest. Returns the newly persisted records. A transport
// failure yields an empty cycle, not an error; a single record's
// persistence failure is reported and does not abort the batch.
func (m *Manager) IngestNewMatches(ctx context.Context) ([]*match.Record, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrIngestInProgress
	}
	defer m.running.Store(false)

	if m.fetcher == nil {
		return nil, fmt.Errorf("manager has no fetcher configured")
	}

	// Load the stored match IDs into the seen filter once, so that a
	// filter miss is a reliable "not stored" answer.
	if !m.primed {
		ids, err := m.store.MatchIDs(ctx)
		if err != nil {
			m.reporter.Report(ctx, "Failed to prime dedup filter", err.Error(), report.SeverityError)
			return nil, fmt.Errorf("prime dedup filter: %w", err)
		}
		for _, id := range ids {
			m.seen.AddString(strconv.FormatInt(id, 10))
		}
		m.primed = true
	}

	cursor := m.cfg.StartSequence
	maxSeq, ok, err := m.store.MaxSequenceNumber(ctx)
	if err != nil {
		m.reporter.Report(ctx, "Failed to read sequence cursor", err.Error(), report.SeverityError)
		return nil, fmt.Errorf("read sequence cursor: %w", err)
	}
	if ok {
		cursor = maxSeq + 1
	}

	payloads, err := m.fetcher.GetMatchHistoryBySequenceNum(ctx, cursor)
	if err != nil {
		// No data this cycle; the next run retries from the same cursor.
		m.reporter.Report(ctx, "Match history fetch failed", err.Error(), report.SeverityWarning)
		return nil, nil
	}

	var saved []*match.Record
	for _, p := range payloads {
		rec := match.FromPayload(p)

		if ok, reason := rec.Valid(); !ok {
			if m.cfg.Debug {
				log.Printf("[Ingest] Match %d rejected: %s", rec.MatchID, reason)
			}
			m.skippedInvalid.Add(1)
			continue
		}

		// A filter hit is never trusted on its own: the store check
		// decides, so a false positive costs a round trip, not a match.
		key := strconv.FormatInt(rec.MatchID, 10)
		if m.seen.TestString(key) {
			exists, err := m.store.MatchExists(ctx, rec.MatchID)
			if err != nil {
				m.reporter.Report(ctx, "Duplicate check failed",
					fmt.Sprintf("match %d: %v", rec.MatchID, err), report.SeverityError)
				continue
			}
			if exists {
				m.skippedDup.Add(1)
				continue
			}
		}

		if err := rec.Save(ctx, m.store); err != nil {
			m.reporter.Report(ctx, "Failed to save match",
				fmt.Sprintf("match %d: %v", rec.MatchID, err), report.SeverityError)
			continue
		}

		m.seen.AddString(key)
		m.ingested.Add(1)
		saved = append(saved, rec)
	}

	return saved, nil
}

// SampleRandom returns count records drawn by random threshold over the
// surrogate key space. The draw is approximately uniform, not exact: rows
// just above a sparse stretch of public IDs are favored. Each result is
// fully populated through the read path.
func (m *Manager) SampleRandom(ctx context.Context, count int) ([]*match.Record, error) {
	if count <= 0 {
		count = DefaultSampleCount
	}

	ids, err := m.store.RandomPublicIDs(ctx, count)
	if err != nil {
		m.reporter.Report(ctx, "Random sample query failed", err.Error(), report.SeverityError)
		return nil, fmt.Errorf("random sample: %w", err)
	}

	matches := make([]*match.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := match.Load(ctx, m.store, 0, id)
		if err != nil {
			m.reporter.Report(ctx, "Failed to load sampled match",
				fmt.Sprintf("public id %d: %v", id, err), report.SeverityError)
			continue
		}
		matches = append(matches, rec)
	}
	return matches, nil
}

// Stats is a snapshot of cycle counters for the daemon's summary output.
type Stats struct {
	Ingested       int64
	SkippedInvalid int64
	SkippedDup     int64
}

// Stats returns the counters accumulated since the manager was created.
func (m *Manager) Stats() Stats {
	return Stats{
		Ingested:       m.ingested.Load(),
		SkippedInvalid: m.skippedInvalid.Load(),
		SkippedDup:     m.skippedDup.Load(),
	}
}
