package admission

// Ledger tracks current resource usage against configured limits. Pure
// bookkeeping: it holds no lock of its own and must only be mutated by the
// owning controller's admit/release transitions.
type Ledger struct {
	limits Limits
	used   Usage
}

// NewLedger creates a ledger bounded by the given limits.
func NewLedger(limits Limits) *Ledger {
	return &Ledger{limits: limits}
}

// Fits reports whether the requested cost can be reserved without exceeding
// any dimension's limit. It is a pure function of current usage, limits, and
// the requested cost.
func (l *Ledger) Fits(req Requirements) bool {
	return l.used.MemoryBytes+req.MemoryBytes <= l.limits.MemoryBytes &&
		l.used.CPUPercent+req.CPUPercent <= l.limits.CPUPercent &&
		l.used.BandwidthBytesPerSec+req.BandwidthBytesPerSec <= l.limits.BandwidthBytesPerSec &&
		l.used.Connections+req.Connections <= l.limits.Connections &&
		l.used.Operations+1 <= l.limits.MaxOperations
}

// Reserve adds the requested cost to the running totals and counts one more
// active operation. Callers must check Fits first under the same lock.
func (l *Ledger) Reserve(req Requirements) {
	l.used.MemoryBytes += req.MemoryBytes
	l.used.CPUPercent += req.CPUPercent
	l.used.BandwidthBytesPerSec += req.BandwidthBytesPerSec
	l.used.Connections += req.Connections
	l.used.Operations++
}

// Release subtracts a previously reserved cost. Totals are clamped at zero so
// a double release can never drive usage negative.
func (l *Ledger) Release(req Requirements) {
	l.used.MemoryBytes = max(l.used.MemoryBytes-req.MemoryBytes, 0)
	l.used.CPUPercent = max(l.used.CPUPercent-req.CPUPercent, 0)
	l.used.BandwidthBytesPerSec = max(l.used.BandwidthBytesPerSec-req.BandwidthBytesPerSec, 0)
	l.used.Connections = max(l.used.Connections-req.Connections, 0)
	l.used.Operations = max(l.used.Operations-1, 0)
}

// Used returns a copy of the current totals.
func (l *Ledger) Used() Usage {
	return l.used
}

// Limits returns the configured ceilings.
func (l *Ledger) Limits() Limits {
	return l.limits
}

// LoadPercent returns the overall load as the maximum per-dimension
// utilization ratio, scaled to 0-100.
func (l *Ledger) LoadPercent() float64 {
	load := ratio(float64(l.used.MemoryBytes), float64(l.limits.MemoryBytes))
	load = max(load, ratio(l.used.CPUPercent, l.limits.CPUPercent))
	load = max(load, ratio(float64(l.used.BandwidthBytesPerSec), float64(l.limits.BandwidthBytesPerSec)))
	load = max(load, ratio(float64(l.used.Connections), float64(l.limits.Connections)))
	load = max(load, ratio(float64(l.used.Operations), float64(l.limits.MaxOperations)))

	return load * percentScale
}

func ratio(used, limit float64) float64 {
	if limit <= 0 {
		return 0
	}

	return used / limit
}
