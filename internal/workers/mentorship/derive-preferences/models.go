// internal/workers/mentorship/derive-preferences/models.go
package derivepreferences

import "mentormatch-workers/internal/models"

type Input struct {
	MenteeID string                `json:"menteeId"`
	Mentee   *models.MenteeProfile `json:"menteeProfile,omitempty"`
}

// Preferences are the derived matching preferences for a mentee.
type Preferences struct {
	RequiredSkills     []string `json:"requiredSkills"`
	PreferSameCollege  bool     `json:"preferSameCollege"`
	PreferSameDistrict bool     `json:"preferSameDistrict"`
	MinExperienceYears int      `json:"minExperienceYears"`
}

type Output struct {
	Preferences Preferences `json:"preferences"`
	OracleUsed  bool        `json:"oracleUsed"`
}

// DefaultPreferences returns the fallback preferences used whenever the
// oracle is unavailable or returns an unusable payload.
func DefaultPreferences() Preferences {
	return Preferences{
		RequiredSkills:     []string{},
		PreferSameCollege:  true,
		PreferSameDistrict: true,
		MinExperienceYears: 1,
	}
}
