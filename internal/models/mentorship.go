// internal/models/mentorship.go
package models

// Mentorship request statuses. Pending and accepted relationships exclude
// a mentor from a mentee's candidate pool; declined and cancelled do not.
const (
	RequestStatusPending   = "pending"
	RequestStatusAccepted  = "accepted"
	RequestStatusDeclined  = "declined"
	RequestStatusCancelled = "cancelled"
)

// MentorshipRequest is a mentee-initiated request for mentorship.
type MentorshipRequest struct {
	ID       string `json:"id"`
	MenteeID string `json:"menteeId"`
	MentorID string `json:"mentorId"`
	Status   string `json:"status"`
}

// IsExclusionary reports whether a relationship in the given status
// removes the mentor from future match results for the mentee.
func IsExclusionary(status string) bool {
	return status == RequestStatusPending || status == RequestStatusAccepted
}
