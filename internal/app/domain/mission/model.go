// Package mission defines the marketplace mission entity and its status
// machine.
package mission

import (
	"fmt"
	"time"
)

// Status is the mission lifecycle state.
type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusRequested  Status = "REQUESTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// ParseStatus validates a status value coming from storage or a caller.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusAvailable, StatusRequested, StatusInProgress, StatusCompleted:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown mission status %q", raw)
}

// Mission is a classroom task posted on the marketplace. CurrentReward and
// RequestCount are derived from RequestedBy and recomputed on every demand
// change; they are stored denormalized so readers never re-derive pricing.
type Mission struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	BaseReward        int       `json:"baseReward"`
	CurrentReward     int       `json:"currentReward"`
	RequestCount      int       `json:"requestCount"`
	RequestedBy       []string  `json:"requestedBy"`
	AssignedStudentID string    `json:"assignedStudentId,omitempty"`
	Status            Status    `json:"status"`
	BandColor         string    `json:"bandColor,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// RequestedByStudent reports whether the student already requested this
// mission.
func (m Mission) RequestedByStudent(studentID string) bool {
	for _, id := range m.RequestedBy {
		if id == studentID {
			return true
		}
	}
	return false
}
