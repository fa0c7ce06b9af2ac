// Package reward defines shop rewards and the pending rewards produced by
// mission completion.
package reward

import "time"

// Reward is a shop item purchasable with spend tokens.
type Reward struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Cost        int       `json:"cost"`
	Icon        string    `json:"icon,omitempty"`
	SoldOut     bool      `json:"soldOut"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Pending is a claimable reward created exactly once when a mission is
// completed. TotalAmount is frozen at completion time and never changes while
// the record exists; it is destroyed when successfully claimed.
type Pending struct {
	ID           string    `json:"id"`
	MissionID    string    `json:"missionId"`
	StudentID    string    `json:"studentId"`
	MissionTitle string    `json:"missionTitle"`
	TotalAmount  int       `json:"totalAmount"`
	CreatedAt    time.Time `json:"createdAt"`
}
