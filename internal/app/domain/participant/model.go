package participant

import "time"

// Status reports whether a participant currently counts for compensation.
// Inactive participants keep their matrix position but are skipped by the
// upline resolver until reactivated.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Participant is a distributor in the ecosystem. SponsorID is empty only for
// the network root.
type Participant struct {
	ID           string
	ExternalRef  string
	Name         string
	SponsorID    string
	Status       Status
	Pin          string
	CareerCycles int
	Reentries    int
	JoinedAt     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the participant is eligible to receive bonuses.
func (p Participant) Active() bool {
	return p.Status == StatusActive
}
