package admission

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testLimits() Limits {
	return Limits{
		MemoryBytes:          1 << 30, // 1GiB
		CPUPercent:           80,
		BandwidthBytesPerSec: 100 << 20, // 100MB/s
		Connections:          50,
		MaxOperations:        10,
	}
}

func TestLedger_Fits(t *testing.T) {
	t.Parallel()

	t.Run("empty ledger fits a request within limits", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(testLimits())
		require.True(t, l.Fits(Requirements{
			MemoryBytes:          800 << 20,
			CPUPercent:           70,
			BandwidthBytesPerSec: 80 << 20,
			Connections:          40,
		}))
	})

	t.Run("request exceeding one dimension does not fit", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(testLimits())
		require.False(t, l.Fits(Requirements{MemoryBytes: 2 << 30}))
	})

	t.Run("second large request does not fit after reserve", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(testLimits())
		req := Requirements{
			MemoryBytes:          800 << 20,
			CPUPercent:           70,
			BandwidthBytesPerSec: 80 << 20,
			Connections:          40,
		}

		require.True(t, l.Fits(req))
		l.Reserve(req)
		require.False(t, l.Fits(req))
	})

	t.Run("operation count limit is enforced", func(t *testing.T) {
		t.Parallel()

		limits := testLimits()
		limits.MaxOperations = 1
		l := NewLedger(limits)

		small := Requirements{MemoryBytes: 1}
		require.True(t, l.Fits(small))
		l.Reserve(small)
		require.False(t, l.Fits(small))
	})
}

func TestLedger_ReleaseClampsAtZero(t *testing.T) {
	t.Parallel()

	l := NewLedger(testLimits())
	req := Requirements{
		MemoryBytes:          100 << 20,
		CPUPercent:           10,
		BandwidthBytesPerSec: 10 << 20,
		Connections:          5,
	}

	l.Reserve(req)
	l.Release(req)
	l.Release(req) // double release must not go negative

	used := l.Used()
	require.Zero(t, used.MemoryBytes)
	require.Zero(t, used.CPUPercent)
	require.Zero(t, used.BandwidthBytesPerSec)
	require.Zero(t, used.Connections)
	require.Zero(t, used.Operations)
}

func TestLedger_ReserveReleasePairing(t *testing.T) {
	t.Parallel()

	l := NewLedger(testLimits())
	reqs := []Requirements{
		{MemoryBytes: 100 << 20, CPUPercent: 10, Connections: 2},
		{MemoryBytes: 200 << 20, CPUPercent: 20, Connections: 4},
		{MemoryBytes: 300 << 20, CPUPercent: 30, Connections: 6},
	}

	for _, r := range reqs {
		l.Reserve(r)
	}

	for _, r := range reqs {
		l.Release(r)
	}

	require.Equal(t, Usage{}, l.Used())
}

func TestLedger_LoadPercent(t *testing.T) {
	t.Parallel()

	t.Run("empty ledger has zero load", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(testLimits())
		require.Zero(t, l.LoadPercent())
	})

	t.Run("load is the maximum dimension utilization", func(t *testing.T) {
		t.Parallel()

		l := NewLedger(testLimits())
		l.Reserve(Requirements{
			MemoryBytes: 512 << 20, // 50% of memory
			CPUPercent:  60,        // 75% of cpu
			Connections: 5,         // 10% of connections
		})

		require.InDelta(t, 75.0, l.LoadPercent(), 0.001)
	})
}
