//go:build linux

package hazpool

import "golang.org/x/sys/unix"

// pinToCPU restricts the calling OS thread to one CPU of its current
// affinity set, chosen round-robin by worker id.
func pinToCPU(workerID int) error {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		return err
	}

	n := allowed.Count()
	if n == 0 {
		return nil
	}
	target := (workerID - 1) % n

	seen := 0
	for cpu := 0; cpu < len(allowed)*64; cpu++ {
		if !allowed.IsSet(cpu) {
			continue
		}
		if seen == target {
			var set unix.CPUSet
			set.Set(cpu)
			return unix.SchedSetaffinity(0, &set)
		}
		seen++
	}
	return nil
}
