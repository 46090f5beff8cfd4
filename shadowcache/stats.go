package shadowcache

import (
	"sync"

	"github.com/tliron/commonlog"
)

// Op names the specialized operation families stats are tracked per.
type Op uint8

const (
	opLoadAttr Op = iota
	opLoadMethod
	opStoreAttr
	opLoadGlobal
	opBinarySubscr
	opStoreSubscr
	opCount
)

func (o Op) String() string {
	switch o {
	case opLoadAttr:
		return "load_attr"
	case opLoadMethod:
		return "load_method"
	case opStoreAttr:
		return "store_attr"
	case opLoadGlobal:
		return "load_global"
	case opBinarySubscr:
		return "binary_subscr"
	case opStoreSubscr:
		return "store_subscr"
	default:
		return "unknown"
	}
}

// opCounters is one operation family's running totals: hits, misses, and
// the live entry count.
type opCounters struct {
	Hits         uint64
	Misses       uint64
	SlightMisses uint64
	Uncacheable  uint64
	Entries      uint64
}

// Stats aggregates cache effectiveness counters across every site sharing
// this instance, typically one per loaded module or per interpreter.
// Counting is unconditional but cheap — each bump is a single uint64
// increment under a shared mutex — and can be compiled out entirely by
// passing a nil *Stats to the handlers that accept one.
//
// Grounded on manifest/manifest.go's toml-configured, env-overridable
// knob pattern for the StatsEnabled gate, and on commonlog's leveled
// logger (already used by server/ and cmd/mag) for the respecialization
// and invalidation trace lines.
type Stats struct {
	mu       sync.Mutex
	counters [opCount]opCounters

	// Detailed is an optional free-form breakdown keyed by a caller-
	// chosen category string (e.g. a type name or opcode-site
	// description), supplementing the per-Op totals above.
	Detailed map[string]uint64

	invalidations uint64
	log           commonlog.Logger

	// warnThreshold mirrors Config.UncacheableWarnThreshold; set once by
	// New and otherwise left at its zero value (warnings disabled) for
	// Stats built directly by tests via NewStats.
	warnThreshold int
}

// NewStats creates an empty counter set. log may be nil to disable
// tracing; NewStats always falls back to a no-op logger in that case so
// callers never need a nil check before calling inv.Stats.log.
func NewStats(log commonlog.Logger) *Stats {
	if log == nil {
		log = commonlog.MOCK_LOGGER
	}
	return &Stats{log: log, Detailed: make(map[string]uint64)}
}

func (s *Stats) recordHit(op Op) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.counters[op].Hits++
	s.mu.Unlock()
}

func (s *Stats) recordMiss(op Op) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.counters[op].Misses++
	s.mu.Unlock()
}

func (s *Stats) recordSlightMiss(op Op) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.counters[op].SlightMisses++
	s.mu.Unlock()
}

func (s *Stats) recordUncacheable(op Op, reason string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.counters[op].Uncacheable++
	count := s.counters[op].Uncacheable
	threshold := s.warnThreshold
	s.mu.Unlock()
	// Zero disables the warning entirely; otherwise stay quiet until
	// count crosses threshold, then remind every threshold-th occurrence
	// rather than paging once and going silent on an ongoing problem.
	if threshold > 0 && count%uint64(threshold) == 0 {
		s.log.Warningf("shadowcache: uncacheable site op=%s reason=%s count=%d", op, reason, count)
	}
}

func (s *Stats) recordEntry(op Op) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.counters[op].Entries++
	s.mu.Unlock()
}

func (s *Stats) recordInvalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.invalidations++
	s.mu.Unlock()
	s.log.Debugf("shadowcache: type invalidated, total=%d", s.invalidations)
}

// BumpDetailed increments a free-form category counter.
func (s *Stats) BumpDetailed(category string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Detailed[category]++
	s.mu.Unlock()
}

// Snapshot is the cbor-serializable form of Stats, written out by
// `mag --cache-stats-file`.
type Snapshot struct {
	PerOp         map[string]opCounters `cbor:"per_op"`
	Detailed      map[string]uint64     `cbor:"detailed,omitempty"`
	Invalidations uint64                `cbor:"invalidations"`
}

// Snapshot takes a point-in-time copy safe to serialize or compare.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		PerOp:         make(map[string]opCounters, opCount),
		Invalidations: s.invalidations,
	}
	for op := Op(0); op < opCount; op++ {
		snap.PerOp[op.String()] = s.counters[op]
	}
	if len(s.Detailed) > 0 {
		snap.Detailed = make(map[string]uint64, len(s.Detailed))
		for k, v := range s.Detailed {
			snap.Detailed[k] = v
		}
	}
	return snap
}
