//go:build tinygo

package core

import "sync/atomic"

var milliTicks uint32

func getMilliTicks() uint32 {
	return atomic.LoadUint32(&milliTicks)
}

func setMilliTicks(ms uint32) {
	atomic.StoreUint32(&milliTicks, ms)
}
