//go:build !linux

package hazpool

func pinToCPU(int) error { return nil }
