//go:build !tinygo

package core

var milliTicks uint32

func getMilliTicks() uint32 {
	return milliTicks
}

func setMilliTicks(ms uint32) {
	milliTicks = ms
}
