package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/xcleague/pkg/metrics"
)

// checkKey rejects identifiers that cannot name a file or row safely.
func checkKey(kind, v string) error {
	if strings.TrimSpace(v) == "" || v != strings.TrimSpace(v) ||
		strings.ContainsAny(v, `/\`) || v == "." || v == ".." {
		return fmt.Errorf("%w: %s %q", ErrInvalidKey, kind, v)
	}
	return nil
}

// sortRounds orders round ids so r2 precedes r10.
func sortRounds(rounds []string) {
	sort.Slice(rounds, func(i, j int) bool {
		if len(rounds[i]) != len(rounds[j]) {
			return len(rounds[i]) < len(rounds[j])
		}
		return rounds[i] < rounds[j]
	})
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
}
