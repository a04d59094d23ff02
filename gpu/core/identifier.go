package core

import (
	"github.com/google/uuid"
)

// Owners is a slot table. Resources created by a device occupy the first
// free slot and remember the index; releasing zeroes the slot so it can
// be handed out again.
type Owners []interface{}

const InvalidID uint32 = 0xFFFFFFFF

// Acquire stores owner in the first free slot, growing the table when
// every slot is taken, and returns the slot index.
func (o *Owners) Acquire(owner interface{}) uint32 {
	for i := range *o {
		if (*o)[i] == nil {
			(*o)[i] = owner
			return uint32(i)
		}
	}
	*o = append(*o, owner)
	return uint32(len(*o) - 1)
}

// Release frees the slot at id. Out-of-range ids are ignored.
func (o *Owners) Release(id uint32) {
	if id == InvalidID || int(id) >= len(*o) {
		return
	}
	(*o)[id] = nil
}

// Get returns the occupant of slot id, or nil for free or out-of-range
// slots.
func (o *Owners) Get(id uint32) interface{} {
	if id == InvalidID || int(id) >= len(*o) {
		return nil
	}
	return (*o)[id]
}

// GenerateLabel produces a unique fallback label for resources created
// without one.
func GenerateLabel(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
