// internal/workers/mentorship/derive-preferences/handler_test.go
package derivepreferences

import (
	"context"
	"errors"
	"testing"
	"time"

	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		OracleTimeout: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

func createTestMentee() *models.MenteeProfile {
	return &models.MenteeProfile{
		UserID:   "mentee-123",
		Headline: "CS student exploring backend development",
		Bio:      "Final year student interested in distributed systems",
		Skills:   []string{"go", "postgresql"},
		Location: models.Location{
			State:    "Karnataka",
			District: "Bengaluru Urban",
			College:  "RV College of Engineering",
		},
	}
}

type stubOracle struct {
	response string
	err      error
}

func (s *stubOracle) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_NoOracle(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		MenteeID: "mentee-123",
		Mentee:   createTestMentee(),
	})

	assert.NoError(t, err)
	assert.False(t, output.OracleUsed)
	assert.Equal(t, DefaultPreferences(), output.Preferences)
}

func TestHandler_Execute_NoMenteeProfile(t *testing.T) {
	handler := NewHandler(createTestConfig(), &stubOracle{response: "{}"}, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{MenteeID: "mentee-123"})

	assert.NoError(t, err)
	assert.False(t, output.OracleUsed)
	assert.Equal(t, DefaultPreferences(), output.Preferences)
}

func TestHandler_Execute_OracleError(t *testing.T) {
	oracle := &stubOracle{err: errors.New("upstream unavailable")}
	handler := NewHandler(createTestConfig(), oracle, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		MenteeID: "mentee-123",
		Mentee:   createTestMentee(),
	})

	assert.NoError(t, err)
	assert.False(t, output.OracleUsed)
	assert.Equal(t, DefaultPreferences(), output.Preferences)
}

func TestHandler_Execute_ValidPayload(t *testing.T) {
	oracle := &stubOracle{response: `{
		"requiredSkills": ["Go", " Kubernetes "],
		"preferSameCollege": false,
		"preferSameDistrict": true,
		"minExperienceYears": 3
	}`}
	handler := NewHandler(createTestConfig(), oracle, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		MenteeID: "mentee-123",
		Mentee:   createTestMentee(),
	})

	assert.NoError(t, err)
	assert.True(t, output.OracleUsed)
	assert.Equal(t, []string{"go", "kubernetes"}, output.Preferences.RequiredSkills)
	assert.False(t, output.Preferences.PreferSameCollege)
	assert.True(t, output.Preferences.PreferSameDistrict)
	assert.Equal(t, 3, output.Preferences.MinExperienceYears)
}

func TestHandler_Execute_FencedPayloadWithProse(t *testing.T) {
	oracle := &stubOracle{response: "Here are the derived preferences:\n```json\n" +
		`{"requiredSkills": ["python"], "preferSameCollege": true, "preferSameDistrict": false, "minExperienceYears": 2}` +
		"\n```\nLet me know if you need anything else."}
	handler := NewHandler(createTestConfig(), oracle, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		MenteeID: "mentee-123",
		Mentee:   createTestMentee(),
	})

	assert.NoError(t, err)
	assert.True(t, output.OracleUsed)
	assert.Equal(t, []string{"python"}, output.Preferences.RequiredSkills)
	assert.False(t, output.Preferences.PreferSameDistrict)
	assert.Equal(t, 2, output.Preferences.MinExperienceYears)
}

func TestHandler_Execute_MalformedPayload(t *testing.T) {
	oracle := &stubOracle{response: "I think a good match would need Go skills"}
	handler := NewHandler(createTestConfig(), oracle, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		MenteeID: "mentee-123",
		Mentee:   createTestMentee(),
	})

	assert.NoError(t, err)
	assert.False(t, output.OracleUsed)
	assert.Equal(t, DefaultPreferences(), output.Preferences)
}

// ==========================
// Payload Parsing Tests
// ==========================

func TestHandler_ParsePreferences_PerFieldValidation(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	tests := []struct {
		name     string
		payload  string
		accepted bool
		validate func(t *testing.T, prefs Preferences)
	}{
		{
			name:     "invalid type on one field keeps the rest",
			payload:  `{"requiredSkills": ["go"], "preferSameCollege": false, "minExperienceYears": "five"}`,
			accepted: true,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Equal(t, []string{"go"}, prefs.RequiredSkills)
				assert.False(t, prefs.PreferSameCollege)
				assert.Equal(t, 1, prefs.MinExperienceYears)
			},
		},
		{
			name:     "skills not an array is dropped",
			payload:  `{"requiredSkills": "go", "preferSameDistrict": false}`,
			accepted: true,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Empty(t, prefs.RequiredSkills)
				assert.False(t, prefs.PreferSameDistrict)
			},
		},
		{
			name:     "experience clamped to minimum one",
			payload:  `{"minExperienceYears": 0}`,
			accepted: true,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Equal(t, 1, prefs.MinExperienceYears)
			},
		},
		{
			name:     "fractional experience truncated",
			payload:  `{"minExperienceYears": 2.7}`,
			accepted: true,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Equal(t, 2, prefs.MinExperienceYears)
			},
		},
		{
			name:     "blank skill entries skipped",
			payload:  `{"requiredSkills": ["go", "", "  "]}`,
			accepted: true,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Equal(t, []string{"go"}, prefs.RequiredSkills)
			},
		},
		{
			name:     "non-string skill entry drops the whole field",
			payload:  `{"requiredSkills": ["go", 42], "preferSameCollege": false}`,
			accepted: true,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Empty(t, prefs.RequiredSkills)
				assert.False(t, prefs.PreferSameCollege)
			},
		},
		{
			name:     "root is not an object",
			payload:  `[1, 2, 3]`,
			accepted: false,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Equal(t, DefaultPreferences(), prefs)
			},
		},
		{
			name:     "empty object accepted nothing",
			payload:  `{}`,
			accepted: false,
			validate: func(t *testing.T, prefs Preferences) {
				assert.Equal(t, DefaultPreferences(), prefs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs, accepted := handler.parsePreferences(tt.payload)
			assert.Equal(t, tt.accepted, accepted)
			tt.validate(t, prefs)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around object", `Sure! {"a": 1} Hope that helps.`, `{"a": 1}`},
		{"no object", "no json here", "no json here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.raw))
		})
	}
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()

	assert.Empty(t, prefs.RequiredSkills)
	assert.NotNil(t, prefs.RequiredSkills)
	assert.True(t, prefs.PreferSameCollege)
	assert.True(t, prefs.PreferSameDistrict)
	assert.Equal(t, 1, prefs.MinExperienceYears)
}
