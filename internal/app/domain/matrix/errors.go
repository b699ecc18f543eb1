package matrix

import "errors"

var (
	// ErrSponsorNotFound means a placement referenced a sponsor that does
	// not exist.
	ErrSponsorNotFound = errors.New("sponsor not found")

	// ErrSelfOrAncestorPlacement means a placement would create a loop in
	// the matrix tree.
	ErrSelfOrAncestorPlacement = errors.New("placement would create a cycle in the tree")

	// ErrNoVacancy means the bounded spillover search exhausted its frontier
	// without finding an open slot.
	ErrNoVacancy = errors.New("no vacant slot within search depth")

	// ErrSlotConflict means a concurrent writer filled the targeted slot
	// first. Placement retries with a fresh read.
	ErrSlotConflict = errors.New("slot filled concurrently")

	// ErrAlreadyPlaced means the participant already occupies a position.
	ErrAlreadyPlaced = errors.New("participant already placed")

	// ErrCorruptSponsorGraph means the upline walk exceeded the maximum
	// plausible chain length, indicating a broken sponsor chain.
	ErrCorruptSponsorGraph = errors.New("sponsor graph exceeds maximum chain length")

	// ErrNoOpenCycle means an owner has no cycle able to accept slots.
	ErrNoOpenCycle = errors.New("no open cycle")

	// ErrReentryLimit means the owner exhausted the monthly reentry quota.
	ErrReentryLimit = errors.New("monthly reentry limit reached")

	// ErrCycleNotCompleted means reentry was requested while the latest
	// cycle is still open.
	ErrCycleNotCompleted = errors.New("latest cycle not completed")
)
