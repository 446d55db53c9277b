package models

import "fmt"

// MaxSelectionSlots caps a single booking at three hours.
const MaxSelectionSlots = 3

// Slot is a derived one-hour interval in minutes since midnight. Never persisted
// on the backend.
type Slot struct {
	Start int    `json:"start" bson:"start"`
	End   int    `json:"end" bson:"end"`
	Label string `json:"label" bson:"label"`
}

func NewSlot(start, end int) Slot {
	return Slot{
		Start: start,
		End:   end,
		Label: fmt.Sprintf("%02d:%02d-%02d:%02d", start/60, start%60, end/60, end%60),
	}
}

// Overlaps uses half-open interval semantics.
func (s Slot) Overlaps(start, end int) bool {
	return s.Start < end && s.End > start
}

// SelectionSet is a user's pending choice of contiguous slots, ordered by start.
type SelectionSet []Slot

func (s SelectionSet) Contains(slot Slot) bool {
	return s.IndexOf(slot) >= 0
}

func (s SelectionSet) IndexOf(slot Slot) int {
	for i, sel := range s {
		if sel.Start == slot.Start && sel.End == slot.End {
			return i
		}
	}
	return -1
}

// Span returns the first start and last end of the set. ok is false when empty.
func (s SelectionSet) Span() (start, end int, ok bool) {
	if len(s) == 0 {
		return 0, 0, false
	}
	start, end = s[0].Start, s[0].End
	for _, sl := range s[1:] {
		if sl.Start < start {
			start = sl.Start
		}
		if sl.End > end {
			end = sl.End
		}
	}
	return start, end, true
}
