// internal/workers/mentorship/notify-matches/models.go
package notifymatches

import "mentormatch-workers/internal/models"

// Notification statuses.
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

// RankedMentor mirrors the ranker's output entries.
type RankedMentor struct {
	MentorID        string          `json:"mentorId"`
	Headline        string          `json:"headline,omitempty"`
	Skills          []string        `json:"skills"`
	Location        models.Location `json:"location"`
	ExperienceYears int             `json:"experienceYears"`
	LocationTier    int             `json:"locationTier"`
	SkillOverlap    float64         `json:"skillOverlap"`
	AIScore         *int            `json:"aiScore"`
	FinalScore      int             `json:"finalScore"`
}

type Input struct {
	MatchID    string         `json:"matchId"`
	MenteeID   string         `json:"menteeId"`
	Mentors    []RankedMentor `json:"rankedMentors"`
	MatchCount int            `json:"matchCount"`
	Message    string         `json:"message,omitempty"`
}

// Contact holds the delivery addresses looked up for the mentee.
type Contact struct {
	Email string
	Phone string
	Name  string
}

type Output struct {
	NotificationID string `json:"notificationId"`
	MatchID        string `json:"matchId"`
	MenteeID       string `json:"menteeId"`
	EmailStatus    string `json:"emailStatus"`
	SMSStatus      string `json:"smsStatus"`
}
