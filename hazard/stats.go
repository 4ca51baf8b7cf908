package hazard

// Stats is a snapshot of registry counters. Values are read individually and
// may be slightly inconsistent with each other under concurrent use.
type Stats struct {
	// Allocated counts node shells created by RequestNode because the
	// recycle stack was empty.
	Allocated int64

	// Freed counts shells dropped by Registry.Clear. After a complete
	// teardown Freed equals Allocated.
	Freed int64

	// Recycled counts nodes pushed onto the recycle stack by scans,
	// Local.Clear and Release.
	Recycled int64

	// Reused counts RequestNode calls served from the recycle stack.
	Reused int64

	// Free is the current depth of the recycle stack.
	Free int64

	// Scans counts completed Scan passes.
	Scans int64

	// Slots is the number of slot records linked into the global list.
	Slots int64

	// Locals is the number of locals registered and not yet cleared.
	Locals int64
}

// Balanced reports whether every allocated node has been freed.
func (s Stats) Balanced() bool {
	return s.Allocated == s.Freed
}
