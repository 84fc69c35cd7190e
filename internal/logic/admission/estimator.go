package admission

import (
	"sort"
	"time"
)

const (
	// Duration model constants. Hand-picked linear approximation; replace the
	// estimator function to calibrate empirically.
	estimateBase         = 5000 * time.Millisecond
	estimateFloor        = 1000 * time.Millisecond
	estimatePerMemoryMB  = 100 * time.Millisecond
	estimatePerCPUPoint  = 200 * time.Millisecond
	estimatePerBandMBps  = 50 * time.Millisecond
	bytesPerMB           = int64(1024 * 1024)
	conservativeWaitHalf = 2
)

// EstimateDuration is the default DurationEstimator: a linear model over the
// declared cost, floored at one second.
func EstimateDuration(req Requirements) time.Duration {
	d := estimateBase
	d += time.Duration(req.MemoryBytes/bytesPerMB) * estimatePerMemoryMB
	d += time.Duration(req.CPUPercent) * estimatePerCPUPoint
	d += time.Duration(req.BandwidthBytesPerSec/bytesPerMB) * estimatePerBandMBps

	return max(d, estimateFloor)
}

// estimateWait predicts how long a request with the given cost must wait for
// capacity. It walks active operations in projected-end order, simulating the
// release of each in turn, and returns the time until the first simulated
// state in which the request fits. When no single release chain suffices it
// falls back to half of the average active-operation duration. Callers hold
// the controller lock.
func (c *Controller) estimateWait(req Requirements) time.Duration {
	if len(c.active) == 0 {
		return 0
	}

	now := c.clock.Now()

	tracked := make([]*operationTracking, 0, len(c.active))
	for _, t := range c.active {
		tracked = append(tracked, t)
	}

	sort.Slice(tracked, func(i, j int) bool {
		return tracked[i].estimatedEnd.Before(tracked[j].estimatedEnd)
	})

	sim := *c.ledger
	for _, t := range tracked {
		sim.Release(t.requirements)

		if sim.Fits(req) {
			wait := t.estimatedEnd.Sub(now)

			return max(wait, 0)
		}
	}

	var total time.Duration
	for _, t := range tracked {
		total += t.estimatedEnd.Sub(t.startedAt)
	}

	avg := total / time.Duration(len(tracked))

	return avg / conservativeWaitHalf
}
