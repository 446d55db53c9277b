package services

import (
	"sort"

	"github.com/joshua-takyi/bashbay-client/internal/models"
)

// ToggleSlot adds slot to the selection or removes it if already selected.
// On error the current set is returned unchanged.
func ToggleSlot(current models.SelectionSet, slot models.Slot) (models.SelectionSet, error) {
	if i := current.IndexOf(slot); i >= 0 {
		next := make(models.SelectionSet, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		// dropping a middle slot would leave a gap
		if !isContiguous(next) {
			return current, models.ErrNonContiguous
		}
		return next, nil
	}

	if len(current) >= models.MaxSelectionSlots {
		return current, models.ErrTooLong
	}

	next := make(models.SelectionSet, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, slot)
	sort.Slice(next, func(i, j int) bool { return next[i].Start < next[j].Start })

	if !isContiguous(next) {
		return current, models.ErrNonContiguous
	}
	return next, nil
}

// ComputeTotal prices the selection at the venue's hourly rate.
func ComputeTotal(set models.SelectionSet, hourlyRate float64) float64 {
	return float64(len(set)) * hourlyRate
}

func isContiguous(set models.SelectionSet) bool {
	for i := 1; i < len(set); i++ {
		if set[i-1].End != set[i].Start {
			return false
		}
	}
	return true
}

// pruneSelection keeps the selection only if every slot is still available.
func pruneSelection(set models.SelectionSet, available []models.Slot) models.SelectionSet {
	for _, sel := range set {
		if !models.SelectionSet(available).Contains(sel) {
			return models.SelectionSet{}
		}
	}
	return set
}
