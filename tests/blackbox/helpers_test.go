//go:build blackbox

package blackbox

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

// writeCaptureCSV writes n primary/fallback sample pairs one second apart,
// with an optional scripted row appended after each pair by extra.
func writeCaptureCSV(t *testing.T, path string, symbol string, n int, extra func(i int) string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	_, _ = f.WriteString("time,source,symbol,price,volume,prev_close\n")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		ts := start.Add(time.Second * time.Duration(i)).Format(time.RFC3339)
		price := 150.0 + float64(i)*0.01
		_, _ = f.WriteString(fmt.Sprintf("%s,primary,%s,%.4f,1000,149.8000\n", ts, symbol, price))
		_, _ = f.WriteString(fmt.Sprintf("%s,fallback,%s,%.4f,900,149.8000\n", ts, symbol, price+0.05))
		if extra != nil {
			if row := extra(i); row != "" {
				_, _ = f.WriteString(row + "\n")
			}
		}
	}
}
