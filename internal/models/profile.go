// internal/models/profile.go
package models

// Location is the three-level location hierarchy used for tier matching.
// State is mandatory for matching; district and college may be blank.
type Location struct {
	State    string `json:"state"`
	District string `json:"district,omitempty"`
	College  string `json:"college,omitempty"`
}

// MenteeProfile is the profile of a user requesting mentor matches.
type MenteeProfile struct {
	UserID   string   `json:"userId"`
	Headline string   `json:"headline,omitempty"`
	Bio      string   `json:"bio,omitempty"`
	Skills   []string `json:"skills"`
	Location Location `json:"location"`
}

// MentorProfile is the profile of a user offering mentorship.
type MentorProfile struct {
	UserID            string   `json:"userId"`
	Headline          string   `json:"headline,omitempty"`
	Skills            []string `json:"skills"`
	Location          Location `json:"location"`
	ExperienceYears   int      `json:"experienceYears"`
	AvailableToMentor bool     `json:"availableToMentor"`
}
