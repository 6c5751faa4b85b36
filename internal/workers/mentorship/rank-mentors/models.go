// internal/workers/mentorship/rank-mentors/models.go
package rankmentors

import "mentormatch-workers/internal/models"

// Preferences mirrors the derived preferences produced upstream.
type Preferences struct {
	RequiredSkills     []string `json:"requiredSkills"`
	PreferSameCollege  bool     `json:"preferSameCollege"`
	PreferSameDistrict bool     `json:"preferSameDistrict"`
	MinExperienceYears int      `json:"minExperienceYears"`
}

// ScoredCandidate mirrors the scorer's output.
type ScoredCandidate struct {
	Mentor       models.MentorProfile `json:"mentor"`
	LocationTier int                  `json:"locationTier"`
	SkillOverlap float64              `json:"skillOverlap"`
	BaseScore    int                  `json:"baseScore"`
	AIScore      *int                 `json:"aiScore"`
}

type Input struct {
	Mentee      models.MenteeProfile `json:"menteeProfile"`
	Scored      []ScoredCandidate    `json:"scoredCandidates"`
	Preferences Preferences          `json:"preferences"`
	Message     string               `json:"message,omitempty"`
}

// RankedMentor is one entry in the final list shown to the mentee.
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

type Output struct {
	MatchID    string         `json:"matchId"`
	MenteeID   string         `json:"menteeId"`
	Mentors    []RankedMentor `json:"rankedMentors"`
	MatchCount int            `json:"matchCount"`
	Message    string         `json:"message,omitempty"`
}
