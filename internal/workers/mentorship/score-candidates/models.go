// internal/workers/mentorship/score-candidates/models.go
package scorecandidates

import "mentormatch-workers/internal/models"

// Location tiers, ordered by specificity. The retriever guarantees a
// state match, so TierNone only appears for malformed inputs.
const (
	TierNone = iota
	TierState
	TierStateDistrict
	TierStateDistrictCollege
)

// Preferences mirrors the derived preferences produced upstream.
type Preferences struct {
	RequiredSkills     []string `json:"requiredSkills"`
	PreferSameCollege  bool     `json:"preferSameCollege"`
	PreferSameDistrict bool     `json:"preferSameDistrict"`
	MinExperienceYears int      `json:"minExperienceYears"`
}

type Input struct {
	Mentee      models.MenteeProfile   `json:"menteeProfile"`
	Candidates  []models.MentorProfile `json:"candidates"`
	Preferences Preferences            `json:"preferences"`
	Message     string                 `json:"message,omitempty"`
}

// ScoredCandidate carries a mentor with its deterministic and AI scores.
// AIScore is nil when the oracle was unavailable or its answer unusable.
type ScoredCandidate struct {
	Mentor       models.MentorProfile `json:"mentor"`
	LocationTier int                  `json:"locationTier"`
	SkillOverlap float64              `json:"skillOverlap"`
	BaseScore    int                  `json:"baseScore"`
	AIScore      *int                 `json:"aiScore"`
}

type Output struct {
	Mentee      models.MenteeProfile `json:"menteeProfile"`
	Scored      []ScoredCandidate    `json:"scoredCandidates"`
	Preferences Preferences          `json:"preferences"`
	Message     string               `json:"message,omitempty"`
}
