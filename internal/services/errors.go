package services

import "errors"

// Sentinel errors for the gacha rule taxonomy. Handlers translate these into
// the platform's JSON error envelope; everything else is a 500.
var (
	// ErrMilestoneNotReached - no unconsumed experience milestone is available.
	ErrMilestoneNotReached = errors.New("E_MILESTONE - experience milestone not reached")

	// ErrAlreadyOwned - the caller already holds this exact item.
	ErrAlreadyOwned = errors.New("E_OWNED - item already held")

	// ErrInventoryFull - the inventory is at cap and no replacement target was supplied.
	ErrInventoryFull = errors.New("E_FULL - inventory full, replacement target required")

	// ErrReplaceNotHeld - the replacement target is not in the caller's inventory.
	ErrReplaceNotHeld = errors.New("E_REPLACE - replacement target not held")

	// ErrInvalidName - a display name is required and must fit the length bounds.
	ErrInvalidName = errors.New("E_NAME - invalid display name")

	// ErrInvalidItem - the item id is outside the drawable range.
	ErrInvalidItem = errors.New("E_ITEM - item id outside the draw range")

	// ErrNotPrimaryHolder - the operation is reserved for the item's primary holder.
	ErrNotPrimaryHolder = errors.New("E_NOT_PRIMARY - caller is not the primary holder")

	// ErrInvalidCredit - an experience credit is missing its user or amount.
	ErrInvalidCredit = errors.New("E_CREDIT - invalid experience credit")

	// ErrNotFound - the referenced profile, item, or holding does not exist.
	ErrNotFound = errors.New("not found")
)
