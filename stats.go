package resampler

import "sync/atomic"

// Stats collects execution counters for one engine instance. Supply it
// explicitly via SetStats; the library keeps no ambient global state.
// All counters are updated atomically, so one Stats may be shared by
// concurrently running splits.
type Stats struct {
	rowsResized      atomic.Int64
	scanlinesDecoded atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	// RowsResized counts finished output rows.
	RowsResized int64

	// ScanlinesDecoded counts input rows decoded to linear floats.
	// Overlapping vertical bands make this smaller than rows-in times
	// splits when the scanline cache is effective.
	ScanlinesDecoded int64

	// CacheHits and CacheMisses count scanline cache lookups.
	CacheHits   int64
	CacheMisses int64
}

// Snapshot returns a consistent-enough copy of the counters for reporting.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		RowsResized:      s.rowsResized.Load(),
		ScanlinesDecoded: s.scanlinesDecoded.Load(),
		CacheHits:        s.cacheHits.Load(),
		CacheMisses:      s.cacheMisses.Load(),
	}
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.rowsResized.Store(0)
	s.scanlinesDecoded.Store(0)
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)
}

// engine.Instrument implementation.

// AddRowsResized records n finished output rows.
func (s *Stats) AddRowsResized(n int64) { s.rowsResized.Add(n) }

// AddScanlinesDecoded records n decoded input scanlines.
func (s *Stats) AddScanlinesDecoded(n int64) { s.scanlinesDecoded.Add(n) }

// AddCacheHits records n scanline cache hits.
func (s *Stats) AddCacheHits(n int64) { s.cacheHits.Add(n) }

// AddCacheMisses records n scanline cache misses.
func (s *Stats) AddCacheMisses(n int64) { s.cacheMisses.Add(n) }
