// internal/workers/mentorship/find-candidates/models.go
package findcandidates

import "mentormatch-workers/internal/models"

// NoMentorsMessage is returned instead of an error when the filtered
// candidate pool is empty.
const NoMentorsMessage = "No mentors are available in your state yet. Check back soon."

// Preferences mirrors the derived preferences produced upstream.
type Preferences struct {
	RequiredSkills     []string `json:"requiredSkills"`
	PreferSameCollege  bool     `json:"preferSameCollege"`
	PreferSameDistrict bool     `json:"preferSameDistrict"`
	MinExperienceYears int      `json:"minExperienceYears"`
}

type Input struct {
	MenteeID    string                `json:"menteeId"`
	Mentee      *models.MenteeProfile `json:"menteeProfile,omitempty"`
	Preferences Preferences           `json:"preferences"`
}

type Output struct {
	Mentee      models.MenteeProfile   `json:"menteeProfile"`
	Candidates  []models.MentorProfile `json:"candidates"`
	Preferences Preferences            `json:"preferences"`
	Message     string                 `json:"message,omitempty"`
}
