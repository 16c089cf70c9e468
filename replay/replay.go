package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/feedrouter/feed"
)

// Options controls replay pacing and error handling.
type Options struct {
	// Speed scales playback. 1 replays at capture pace, 2 at double pace.
	// Zero or less replays as fast as possible.
	Speed float64

	// Strict aborts on the first malformed row instead of skipping it.
	Strict bool
}

// Stats summarizes a finished replay.
type Stats struct {
	Rows    int
	Samples int
	Events  int
	Skipped int
}

// CSV replays a capture file into the sink. Compressed captures are handled
// by extension, see ReadCaptureFile.
func CSV(ctx context.Context, path string, sink feed.Sink, opts Options) (Stats, error) {
	rc, err := ReadCaptureFile(path)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()
	return Run(ctx, rc, sink, opts)
}

// Run replays capture rows in file order:
//
//	time,source,symbol,price,volume,prev_close[,event,arg]
//
// A row with a symbol is a sample for its source. A row may instead, or
// additionally, carry an event: HEALTH_UP and HEALTH_DOWN flip the row's
// source health, FORCE_FAILOVER forces the fallback route. When a row has
// both, the sample is pushed before the event applies. Blank lines and
// # comments are ignored, and a leading header row is skipped.
func Run(ctx context.Context, r io.Reader, sink feed.Sink, opts Options) (Stats, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var stats Stats
	var prev time.Time
	first := true

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			if opts.Strict {
				return stats, fmt.Errorf("reading capture: %w", err)
			}
			stats.Skipped++
			continue
		}

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "time") {
				continue
			}
		}
		stats.Rows++

		row, err := parseRow(rec)
		if err != nil {
			if opts.Strict {
				return stats, fmt.Errorf("row %d: %w", stats.Rows, err)
			}
			stats.Skipped++
			continue
		}

		if err := pace(ctx, prev, row.at, opts.Speed); err != nil {
			return stats, err
		}
		prev = row.at

		if row.sample != nil {
			if row.src == feed.SourcePrimary {
				sink.SubmitPrimary(*row.sample)
			} else {
				sink.SubmitFallback(*row.sample)
			}
			stats.Samples++
		}
		if row.event != "" {
			if err := applyEvent(sink, row); err != nil {
				if opts.Strict {
					return stats, fmt.Errorf("row %d: %w", stats.Rows, err)
				}
				stats.Skipped++
				continue
			}
			stats.Events++
		}
	}
}

type row struct {
	at        time.Time
	src       feed.Source
	hasSource bool
	sample    *feed.Sample
	event     string
	arg       string
}

func parseRow(rec []string) (row, error) {
	if len(rec) < 6 {
		return row{}, fmt.Errorf("want at least 6 columns, got %d", len(rec))
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}

	at, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return row{}, fmt.Errorf("bad time %q: %w", rec[0], err)
	}
	out := row{at: at}

	if rec[1] != "" {
		src, err := feed.ParseSource(rec[1])
		if err != nil {
			return row{}, err
		}
		out.src = src
		out.hasSource = true
	}

	if len(rec) > 6 {
		out.event = strings.ToUpper(rec[6])
	}
	if len(rec) > 7 {
		out.arg = rec[7]
	}

	if rec[2] == "" {
		if out.event == "" {
			return row{}, errors.New("row has neither symbol nor event")
		}
		return out, nil
	}
	if !out.hasSource {
		return row{}, fmt.Errorf("sample row for %q is missing a source", rec[2])
	}

	price, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return row{}, fmt.Errorf("bad price %q: %w", rec[3], err)
	}
	var volume float64
	if rec[4] != "" {
		volume, err = strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return row{}, fmt.Errorf("bad volume %q: %w", rec[4], err)
		}
	}
	var prevClose float64
	if rec[5] != "" {
		prevClose, err = strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return row{}, fmt.Errorf("bad prev_close %q: %w", rec[5], err)
		}
	}

	out.sample = &feed.Sample{
		Symbol:    rec[2],
		Price:     price,
		Volume:    volume,
		Time:      at,
		PrevClose: prevClose,
	}
	return out, nil
}

func applyEvent(sink feed.Sink, r row) error {
	switch r.event {
	case "HEALTH_UP", "HEALTH_DOWN":
		if !r.hasSource {
			return fmt.Errorf("%s row needs a source", r.event)
		}
		healthy := r.event == "HEALTH_UP"
		reason := r.arg
		if reason == "" {
			reason = "scripted health event"
		}
		if r.src == feed.SourcePrimary {
			sink.SetPrimaryHealth(healthy, reason)
		} else {
			sink.SetFallbackHealth(healthy, reason)
		}
	case "FORCE_FAILOVER":
		sink.ForceFailover(r.arg)
	default:
		return fmt.Errorf("unknown event %q", r.event)
	}
	return nil
}

// pace sleeps the scaled gap between consecutive capture timestamps.
func pace(ctx context.Context, prev, next time.Time, speed float64) error {
	if speed <= 0 || prev.IsZero() {
		return nil
	}
	gap := next.Sub(prev)
	if gap <= 0 {
		return nil
	}

	t := time.NewTimer(time.Duration(float64(gap) / speed))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
