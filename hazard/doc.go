// Package hazard implements hazard pointers: a safe-memory-reclamation scheme
// that lets lock-free structures recycle list nodes without handing a node out
// again while another goroutine may still dereference it.
//
// A Registry holds the process-wide state: a singly linked list of hazard
// slots that only ever grows, a lock-free stack of recycled node shells and
// allocation counters. Every goroutine that touches a protected structure
// registers once with ThreadInit and receives a Local carrying a fixed number
// of slots plus a private list of retired nodes.
//
// # Protocol
//
//	local, err := reg.ThreadInit(2)
//	if err != nil {
//	    return err
//	}
//	defer local.Clear()
//
//	n := head.Load()
//	local.SetHazard(0, n)     // publish
//	if n != head.Load() {     // re-validate before dereferencing
//	    // retry
//	}
//	...
//	local.SetHazard(0, nil)   // clear as soon as done
//	local.Retire(unlinked)    // defer recycling of an unlinked node
//
// Retired nodes are reconciled against the published slots by Scan, which
// runs automatically once a Local holds more retired nodes than the registry
// threshold. Nodes no slot references move to the shared recycle stack and
// are handed out again by RequestNode.
//
// # Slot lifetime
//
// Slots contributed by a Local stay linked after Local.Clear; they are only
// nil-ed. The slot list therefore grows with the number of locals ever
// created, not with churn, and Scan walks all of them. Pools that create a
// fixed set of locals up front (like the worker pool in the parent package)
// are the intended users.
//
// The Go garbage collector already prevents use-after-free. What hazard
// pointers guard here is reuse: a recycled node reappearing at the same
// address is exactly the ABA case a compare-and-swap cannot detect.
package hazard
