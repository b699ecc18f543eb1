package matrix

import "time"

// Width is the fixed fan-out of the spillover matrix.
const Width = 6

// CycleStatus is the lifecycle state of a matrix cycle.
type CycleStatus string

const (
	CycleOpen      CycleStatus = "open"
	CycleCompleted CycleStatus = "completed"
)

// Cycle tracks one pass of an owner through the matrix. A new cycle starts
// with zero filled slots and completes exactly when the sixth slot fills.
type Cycle struct {
	ID          string
	OwnerID     string
	Number      int
	Status      CycleStatus
	SlotsFilled int
	Slots       []string
	BaseValue   float64
	OpenedAt    time.Time
	CompletedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Open reports whether the cycle can still accept occupants.
func (c Cycle) Open() bool { return c.Status == CycleOpen }

// Edge records a structural placement: downline occupies one of the upline's
// slots. Each participant is placed exactly once; edges are never removed.
type Edge struct {
	ID         string
	UplineID   string
	DownlineID string
	Slot       int
	Level      int
	CreatedAt  time.Time
}

// EventType identifies a matrix lifecycle event.
type EventType string

const (
	EventCycleOpened    EventType = "cycle_opened"
	EventCycleCompleted EventType = "cycle_completed"
)

// Event is an append-only record consumed by the settlement processor.
type Event struct {
	ID          string
	Type        EventType
	CycleID     string
	OwnerID     string
	CycleNumber int
	BaseValue   float64
	Attempts    int
	Processed   bool
	ProcessedAt time.Time
	CreatedAt   time.Time
}
