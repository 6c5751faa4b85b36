// internal/workers/mentorship/rank-mentors/handler_test.go
package rankmentors

import (
	"context"
	"fmt"
	"testing"

	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func intPtr(v int) *int {
	return &v
}

func scoredCandidate(id string, tier, baseScore int, aiScore *int) ScoredCandidate {
	return ScoredCandidate{
		Mentor: models.MentorProfile{
			UserID:          id,
			Skills:          []string{"go"},
			ExperienceYears: 5,
			Location:        models.Location{State: "Karnataka"},
		},
		LocationTier: tier,
		BaseScore:    baseScore,
		AIScore:      aiScore,
	}
}

func defaultPrefs() Preferences {
	return Preferences{
		RequiredSkills:     []string{},
		PreferSameCollege:  true,
		PreferSameDistrict: true,
		MinExperienceYears: 1,
	}
}

func testMentee() models.MenteeProfile {
	return models.MenteeProfile{
		UserID:   "mentee-1",
		Location: models.Location{State: "Karnataka"},
	}
}

// ==========================
// Final score
// ==========================

func TestHandler_CalculateFinalScore(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name     string
		sc       ScoredCandidate
		prefs    Preferences
		expected int
	}{
		{
			name:     "college tier with preference applies strongest weight",
			sc:       scoredCandidate("m", 3, 220, intPtr(80)),
			prefs:    defaultPrefs(),
			expected: 312, // (220 + 40) * 1.2
		},
		{
			name:     "district tier with preference",
			sc:       scoredCandidate("m", 2, 140, intPtr(60)),
			prefs:    defaultPrefs(),
			expected: 187, // (140 + 30) * 1.1
		},
		{
			name:     "state tier never weighted",
			sc:       scoredCandidate("m", 1, 73, intPtr(100)),
			prefs:    defaultPrefs(),
			expected: 123,
		},
		{
			name:     "college tier without college preference falls to district weight",
			sc:       scoredCandidate("m", 3, 200, nil),
			prefs:    Preferences{PreferSameCollege: false, PreferSameDistrict: true},
			expected: 220, // 200 * 1.1
		},
		{
			name:     "no preferences means no weight",
			sc:       scoredCandidate("m", 3, 200, nil),
			prefs:    Preferences{},
			expected: 200,
		},
		{
			name:     "nil ai score contributes nothing",
			sc:       scoredCandidate("m", 1, 60, nil),
			prefs:    defaultPrefs(),
			expected: 60,
		},
		{
			name:     "result rounds half up",
			sc:       scoredCandidate("m", 2, 61, nil),
			prefs:    defaultPrefs(),
			expected: 67, // 61 * 1.1 = 67.1 -> 67
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, handler.calculateFinalScore(&tt.sc, tt.prefs))
		})
	}
}

// ==========================
// Ranking
// ==========================

func TestHandler_Execute_TierBeatsScore(t *testing.T) {
	handler := newTestHandler(t)

	input := &Input{
		Mentee: testMentee(),
		Scored: []ScoredCandidate{
			scoredCandidate("state-high", 1, 100, intPtr(100)),
			scoredCandidate("district-low", 2, 120, nil),
			scoredCandidate("district-high", 2, 170, nil),
		},
		Preferences: defaultPrefs(),
	}

	output, err := handler.Execute(context.Background(), input)
	assert.NoError(t, err)

	// Tier 1 candidate is dropped entirely, not just ranked last.
	assert.Equal(t, 2, output.MatchCount)
	assert.Equal(t, "district-high", output.Mentors[0].MentorID)
	assert.Equal(t, "district-low", output.Mentors[1].MentorID)
}

func TestHandler_Execute_StrictTierTruncation(t *testing.T) {
	handler := newTestHandler(t)

	input := &Input{
		Mentee: testMentee(),
		Scored: []ScoredCandidate{
			scoredCandidate("college-1", 3, 200, nil),
			scoredCandidate("district-1", 2, 300, intPtr(100)),
			scoredCandidate("state-1", 1, 400, intPtr(100)),
		},
		Preferences: defaultPrefs(),
	}

	output, err := handler.Execute(context.Background(), input)
	assert.NoError(t, err)

	assert.Equal(t, 1, output.MatchCount)
	assert.Equal(t, "college-1", output.Mentors[0].MentorID)
}

func TestHandler_Execute_TopResultsOnly(t *testing.T) {
	handler := newTestHandler(t)

	scored := make([]ScoredCandidate, 15)
	for i := range scored {
		scored[i] = scoredCandidate(fmt.Sprintf("mentor-%d", i), 1, 60+i, nil)
	}

	output, err := handler.Execute(context.Background(), &Input{
		Mentee:      testMentee(),
		Scored:      scored,
		Preferences: defaultPrefs(),
	})
	assert.NoError(t, err)

	assert.Equal(t, 10, output.MatchCount)
	assert.Equal(t, "mentor-14", output.Mentors[0].MentorID)
	assert.Equal(t, "mentor-5", output.Mentors[9].MentorID)
}

func TestHandler_Execute_OrderIndependentForDistinctScores(t *testing.T) {
	handler := newTestHandler(t)

	a := scoredCandidate("a", 2, 150, intPtr(90))
	b := scoredCandidate("b", 2, 150, intPtr(40))
	c := scoredCandidate("c", 2, 120, nil)

	forward, err := handler.Execute(context.Background(), &Input{
		Mentee:      testMentee(),
		Scored:      []ScoredCandidate{a, b, c},
		Preferences: defaultPrefs(),
	})
	assert.NoError(t, err)

	reversed, err := handler.Execute(context.Background(), &Input{
		Mentee:      testMentee(),
		Scored:      []ScoredCandidate{c, b, a},
		Preferences: defaultPrefs(),
	})
	assert.NoError(t, err)

	forwardIDs := make([]string, 0, len(forward.Mentors))
	for _, m := range forward.Mentors {
		forwardIDs = append(forwardIDs, m.MentorID)
	}
	reversedIDs := make([]string, 0, len(reversed.Mentors))
	for _, m := range reversed.Mentors {
		reversedIDs = append(reversedIDs, m.MentorID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, forwardIDs)
	assert.Equal(t, forwardIDs, reversedIDs)
}

func TestHandler_Execute_TiesKeepArrivalOrder(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Mentee: testMentee(),
		Scored: []ScoredCandidate{
			scoredCandidate("first", 1, 100, nil),
			scoredCandidate("second", 1, 100, nil),
		},
		Preferences: defaultPrefs(),
	})
	assert.NoError(t, err)

	assert.Equal(t, "first", output.Mentors[0].MentorID)
	assert.Equal(t, "second", output.Mentors[1].MentorID)
}

func TestHandler_Execute_EmptyPool(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Mentee:      testMentee(),
		Scored:      nil,
		Preferences: defaultPrefs(),
		Message:     "No mentors are available in your state yet. Check back soon.",
	})
	assert.NoError(t, err)

	assert.Equal(t, 0, output.MatchCount)
	assert.Empty(t, output.Mentors)
	assert.Equal(t, "No mentors are available in your state yet. Check back soon.", output.Message)
	_, parseErr := uuid.Parse(output.MatchID)
	assert.NoError(t, parseErr)
}

func TestHandler_Execute_MatchIDUnique(t *testing.T) {
	handler := newTestHandler(t)

	input := &Input{Mentee: testMentee(), Preferences: defaultPrefs()}

	first, err := handler.Execute(context.Background(), input)
	assert.NoError(t, err)
	second, err := handler.Execute(context.Background(), input)
	assert.NoError(t, err)

	assert.NotEqual(t, first.MatchID, second.MatchID)
}
