package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide session traffic counter.
var Stats = &stats{}

type stats struct {
	TotalLinks  atomic.Int64 // peer links established since process start
	ClosedLinks atomic.Int64 // peer links lost or closed since process start
	MsgsSent    atomic.Int64 // session messages handed to a link
	MsgsRecv    atomic.Int64 // session messages read from a link
	BytesSent   atomic.Int64
	BytesRecv   atomic.Int64
}

func (s *stats) AddConn()    { s.TotalLinks.Add(1) }
func (s *stats) RemoveConn() { s.ClosedLinks.Add(1) }

func (s *stats) AddSent(n int) {
	s.MsgsSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.MsgsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// reportInterval is how often StartStatsReporter samples the counters.
const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs session traffic at debug
// level every 10 seconds, skipping idle intervals. It stops when ctx is
// cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prev snapshot
		for {
			select {
			case <-ticker.C:
				cur := takeSnapshot()
				if cur != prev {
					pterm.DefaultLogger.Debug(formatStats(cur.delta(prev)))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

type snapshot struct {
	links, closed, msgsIn, msgsOut, bytesIn, bytesOut int64
}

func takeSnapshot() snapshot {
	return snapshot{
		links:    Stats.TotalLinks.Load(),
		closed:   Stats.ClosedLinks.Load(),
		msgsIn:   Stats.MsgsRecv.Load(),
		msgsOut:  Stats.MsgsSent.Load(),
		bytesIn:  Stats.BytesRecv.Load(),
		bytesOut: Stats.BytesSent.Load(),
	}
}

func (s snapshot) delta(prev snapshot) snapshot {
	return snapshot{
		links:    s.links - prev.links,
		closed:   s.closed - prev.closed,
		msgsIn:   s.msgsIn - prev.msgsIn,
		msgsOut:  s.msgsOut - prev.msgsOut,
		bytesIn:  s.bytesIn - prev.bytesIn,
		bytesOut: s.bytesOut - prev.bytesOut,
	}
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a fixed-width (8 chars) string,
// e.g. "99.0   B", " 1.5 KiB".
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats renders one reporting interval.
func formatStats(d snapshot) string {
	secs := reportInterval.Seconds()
	return fmt.Sprintf("In: %d msg, %s/s | Out: %d msg, %s/s | Links: %2d↑ %2d↓",
		d.msgsIn, formatBytes(float64(d.bytesIn)/secs),
		d.msgsOut, formatBytes(float64(d.bytesOut)/secs),
		d.links, d.closed,
	)
}
