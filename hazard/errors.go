package hazard

import "errors"

var (
	// ErrSlotOutOfRange is returned by SetHazard for an index outside the
	// slots the Local was created with.
	ErrSlotOutOfRange = errors.New("hazard: slot index out of range")

	// ErrInvalidSlotCount is returned by ThreadInit when asked for fewer
	// than one slot.
	ErrInvalidSlotCount = errors.New("hazard: slot count must be >= 1")
)
