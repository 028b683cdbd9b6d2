package core

// Millisecond monotonic clock. Target code refreshes the tick store from its
// hardware timer; the core only ever reads it. The counter is 32 bits and
// wraps; all comparisons must go through timeReached.

// NowMillis returns the current millisecond tick.
func NowMillis() uint32 {
	return getMilliTicks()
}

// SetMillis stores the current millisecond tick. Called by target clock code
// and by tests driving simulated time.
func SetMillis(ms uint32) {
	setMilliTicks(ms)
}

// timeReached reports whether now is at or past target. The signed
// subtraction keeps the comparison correct across counter wraparound for any
// two stamps less than 2^31 ms apart, which covers every lockout and watchdog
// window the motor uses.
func timeReached(now, target uint32) bool {
	return int32(now-target) >= 0
}
