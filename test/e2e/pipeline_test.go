// test/e2e/pipeline_test.go
package e2e

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/models"

	derivepreferences "mentormatch-workers/internal/workers/mentorship/derive-preferences"
	findcandidates "mentormatch-workers/internal/workers/mentorship/find-candidates"
	notifymatches "mentormatch-workers/internal/workers/mentorship/notify-matches"
	rankmentors "mentormatch-workers/internal/workers/mentorship/rank-mentors"
	scorecandidates "mentormatch-workers/internal/workers/mentorship/score-candidates"
)

// The pipeline tests exercise the worker Execute methods back to back the
// way the workflow engine chains them, with mocked stores and a stubbed
// oracle. Variables pass between stages through JSON, matching the
// process-variable round trip.

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

type fakeEmailSender struct {
	sent   int
	lastTo string
}

func (f *fakeEmailSender) SendSimpleEmail(ctx context.Context, from, to, subject, body string) error {
	f.sent++
	f.lastTo = to
	return nil
}

// carry marshals one stage's output and unmarshals it into the next
// stage's input, like the engine does with process variables.
func carry(t *testing.T, from interface{}, to interface{}) {
	t.Helper()
	data, err := json.Marshal(from)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, to))
}

func newRedisClient(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func findCandidatesConfig() *findcandidates.Config {
	return &findcandidates.Config{
		CacheTTL:      10 * time.Minute,
		QueryTimeout:  2 * time.Second,
		Timeout:       5 * time.Second,
		MaxCandidates: 200,
		SearchIndex:   "mentor-profiles",
	}
}

func mentorColumns() []string {
	return []string{"user_id", "headline", "skills", "state", "district", "college", "experience_years", "available_to_mentor"}
}

func mentorRow(id, headline string, skills []string, state, district, college string, years int) []driverValue {
	data, _ := json.Marshal(skills)
	return []driverValue{id, headline, string(data), state, district, college, years, true}
}

type driverValue = driver.Value

func addMentorRows(rows *sqlmock.Rows, mentors ...[]driverValue) *sqlmock.Rows {
	for _, m := range mentors {
		rows.AddRow(m...)
	}
	return rows
}

func TestPipeline_FullMatchFlow(t *testing.T) {
	mentee := &models.MenteeProfile{
		UserID: "mentee-1",
		Bio:    "Final year student exploring backend development",
		Skills: []string{"go", "postgresql"},
		Location: models.Location{
			State:    "Karnataka",
			District: "Bengaluru Urban",
			College:  "RV College of Engineering",
		},
	}

	// --- Stage 1: derive preferences from the oracle ---
	prefsOracle := &stubOracle{response: `{
		"requiredSkills": ["go", "distributed systems"],
		"preferSameCollege": true,
		"preferSameDistrict": true,
		"minExperienceYears": 2
	}`}
	deriveHandler := derivepreferences.NewHandler(
		&derivepreferences.Config{OracleTimeout: 2 * time.Second, Timeout: 5 * time.Second},
		prefsOracle,
		logger.NewTestLogger(t),
	)

	deriveOut, err := deriveHandler.Execute(context.Background(), &derivepreferences.Input{
		MenteeID: mentee.UserID,
		Mentee:   mentee,
	})
	require.NoError(t, err)
	assert.True(t, deriveOut.OracleUsed)
	assert.Equal(t, 2, deriveOut.Preferences.MinExperienceYears)

	// --- Stage 2: retrieve candidates from the store ---
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(mentorColumns())
	addMentorRows(rows,
		mentorRow("mentor-college", "Platform engineer", []string{"go", "kubernetes"},
			"Karnataka", "Bengaluru Urban", "RV College of Engineering", 6),
		mentorRow("mentor-district", "Backend mentor", []string{"go", "postgresql"},
			"Karnataka", "Bengaluru Urban", "BMS College", 4),
		mentorRow("mentor-state", "Engineering manager", []string{"java"},
			"Karnataka", "Mysuru", "", 10),
		mentorRow("mentor-taken", "Data engineer", []string{"go"},
			"Karnataka", "Bengaluru Urban", "RV College of Engineering", 8),
	)
	mock.ExpectQuery(`available_to_mentor = TRUE`).
		WithArgs("mentee-1", "Karnataka", 2).
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM mentorship_requests`).
		WithArgs("mentee-1", models.RequestStatusPending, models.RequestStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id"}).AddRow("mentor-taken"))

	findHandler := findcandidates.NewHandler(findCandidatesConfig(), db, newRedisClient(t), nil, logger.NewTestLogger(t))

	var findIn findcandidates.Input
	findIn.MenteeID = mentee.UserID
	findIn.Mentee = mentee
	carry(t, deriveOut.Preferences, &findIn.Preferences)

	findOut, err := findHandler.Execute(context.Background(), &findIn)
	require.NoError(t, err)
	require.Len(t, findOut.Candidates, 3)
	assert.Empty(t, findOut.Message)
	require.NoError(t, mock.ExpectationsWereMet())

	// --- Stage 3: score candidates, oracle succeeds for all ---
	scoreHandler := scorecandidates.NewHandler(
		&scorecandidates.Config{OracleTimeout: 2 * time.Second, Timeout: 5 * time.Second, MaxConcurrentScores: 5},
		&stubOracle{response: "80"},
		logger.NewTestLogger(t),
	)

	var scoreIn scorecandidates.Input
	carry(t, findOut, &scoreIn)

	scoreOut, err := scoreHandler.Execute(context.Background(), &scoreIn)
	require.NoError(t, err)
	require.Len(t, scoreOut.Scored, 3)

	byID := map[string]scorecandidates.ScoredCandidate{}
	for _, sc := range scoreOut.Scored {
		byID[sc.Mentor.UserID] = sc
	}
	assert.Equal(t, 3, byID["mentor-college"].LocationTier)
	assert.Equal(t, 2, byID["mentor-district"].LocationTier)
	assert.Equal(t, 1, byID["mentor-state"].LocationTier)
	require.NotNil(t, byID["mentor-college"].AIScore)
	assert.Equal(t, 80, *byID["mentor-college"].AIScore)

	// --- Stage 4: rank, best tier only ---
	rankHandler := rankmentors.NewHandler(
		&rankmentors.Config{MaxResults: 10, Timeout: 5 * time.Second},
		logger.NewTestLogger(t),
	)

	var rankIn rankmentors.Input
	carry(t, scoreOut, &rankIn)

	rankOut, err := rankHandler.Execute(context.Background(), &rankIn)
	require.NoError(t, err)

	// Only the same-college mentor survives the strict tier cut.
	require.Equal(t, 1, rankOut.MatchCount)
	assert.Equal(t, "mentor-college", rankOut.Mentors[0].MentorID)
	assert.NotEmpty(t, rankOut.MatchID)

	// mentor-college: tier 3, overlap 1/3, base 193, ai 80 -> round((193+40)*1.2) = 280
	assert.Equal(t, 280, rankOut.Mentors[0].FinalScore)

	// --- Stage 5: notify the mentee ---
	notifyDB, notifyMock, err := sqlmock.New()
	require.NoError(t, err)
	defer notifyDB.Close()
	notifyMock.ExpectQuery(`FROM users`).
		WithArgs("mentee-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone", "full_name"}).
			AddRow("mentee@example.com", "", "Asha"))

	email := &fakeEmailSender{}
	notifyHandler := notifymatches.NewHandler(
		&notifymatches.Config{
			EmailEnabled: true,
			FromEmail:    "no-reply@mentormatch.example",
			QueryTimeout: 2 * time.Second,
			Timeout:      5 * time.Second,
		},
		notifyDB, email, nil, logger.NewTestLogger(t),
	)

	var notifyIn notifymatches.Input
	carry(t, rankOut, &notifyIn)

	notifyOut, err := notifyHandler.Execute(context.Background(), &notifyIn)
	require.NoError(t, err)
	assert.Equal(t, notifymatches.StatusSent, notifyOut.EmailStatus)
	assert.Equal(t, 1, email.sent)
	assert.Equal(t, "mentee@example.com", email.lastTo)
}

func TestPipeline_OracleDownFallsBackToDefaults(t *testing.T) {
	mentee := &models.MenteeProfile{
		UserID:   "mentee-2",
		Skills:   []string{"python"},
		Location: models.Location{State: "Kerala"},
	}

	downOracle := &stubOracle{err: errors.New("deadline exceeded")}

	deriveHandler := derivepreferences.NewHandler(
		&derivepreferences.Config{OracleTimeout: time.Second, Timeout: 5 * time.Second},
		downOracle,
		logger.NewTestLogger(t),
	)

	deriveOut, err := deriveHandler.Execute(context.Background(), &derivepreferences.Input{
		MenteeID: mentee.UserID,
		Mentee:   mentee,
	})
	require.NoError(t, err)
	assert.False(t, deriveOut.OracleUsed)
	assert.Equal(t, derivepreferences.DefaultPreferences(), deriveOut.Preferences)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(mentorColumns())
	addMentorRows(rows,
		mentorRow("mentor-a", "", []string{"python", "django"}, "Kerala", "", "", 3),
		mentorRow("mentor-b", "", []string{"python"}, "Kerala", "", "", 5),
	)
	// Default preferences clamp minimum experience to 1.
	mock.ExpectQuery(`available_to_mentor = TRUE`).
		WithArgs("mentee-2", "Kerala", 1).
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM mentorship_requests`).
		WithArgs("mentee-2", models.RequestStatusPending, models.RequestStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id"}))

	findHandler := findcandidates.NewHandler(findCandidatesConfig(), db, newRedisClient(t), nil, logger.NewTestLogger(t))

	var findIn findcandidates.Input
	findIn.MenteeID = mentee.UserID
	findIn.Mentee = mentee
	carry(t, deriveOut.Preferences, &findIn.Preferences)

	findOut, err := findHandler.Execute(context.Background(), &findIn)
	require.NoError(t, err)
	require.Len(t, findOut.Candidates, 2)

	// Scoring continues deterministically with the oracle still down.
	scoreHandler := scorecandidates.NewHandler(
		&scorecandidates.Config{OracleTimeout: time.Second, Timeout: 5 * time.Second, MaxConcurrentScores: 5},
		downOracle,
		logger.NewTestLogger(t),
	)

	var scoreIn scorecandidates.Input
	carry(t, findOut, &scoreIn)

	scoreOut, err := scoreHandler.Execute(context.Background(), &scoreIn)
	require.NoError(t, err)
	for _, sc := range scoreOut.Scored {
		assert.Nil(t, sc.AIScore)
		assert.Equal(t, 1, sc.LocationTier)
	}

	rankHandler := rankmentors.NewHandler(
		&rankmentors.Config{MaxResults: 10, Timeout: 5 * time.Second},
		logger.NewTestLogger(t),
	)

	var rankIn rankmentors.Input
	carry(t, scoreOut, &rankIn)

	rankOut, err := rankHandler.Execute(context.Background(), &rankIn)
	require.NoError(t, err)
	assert.Equal(t, 2, rankOut.MatchCount)
}

func TestPipeline_EmptyPoolEndsWithMessage(t *testing.T) {
	mentee := &models.MenteeProfile{
		UserID:   "mentee-3",
		Skills:   []string{"rust"},
		Location: models.Location{State: "Sikkim"},
	}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`available_to_mentor = TRUE`).
		WithArgs("mentee-3", "Sikkim", 1).
		WillReturnRows(sqlmock.NewRows(mentorColumns()))
	mock.ExpectQuery(`FROM mentorship_requests`).
		WithArgs("mentee-3", models.RequestStatusPending, models.RequestStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id"}))

	findHandler := findcandidates.NewHandler(findCandidatesConfig(), db, newRedisClient(t), nil, logger.NewTestLogger(t))

	findOut, err := findHandler.Execute(context.Background(), &findcandidates.Input{
		MenteeID:    mentee.UserID,
		Mentee:      mentee,
		Preferences: findcandidates.Preferences{MinExperienceYears: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, findOut.Candidates)
	assert.Equal(t, findcandidates.NoMentorsMessage, findOut.Message)

	// The message rides through scoring and ranking untouched.
	scoreHandler := scorecandidates.NewHandler(
		&scorecandidates.Config{OracleTimeout: time.Second, Timeout: 5 * time.Second, MaxConcurrentScores: 5},
		nil,
		logger.NewTestLogger(t),
	)

	var scoreIn scorecandidates.Input
	carry(t, findOut, &scoreIn)

	scoreOut, err := scoreHandler.Execute(context.Background(), &scoreIn)
	require.NoError(t, err)
	assert.Empty(t, scoreOut.Scored)
	assert.Equal(t, findcandidates.NoMentorsMessage, scoreOut.Message)

	rankHandler := rankmentors.NewHandler(
		&rankmentors.Config{MaxResults: 10, Timeout: 5 * time.Second},
		logger.NewTestLogger(t),
	)

	var rankIn rankmentors.Input
	carry(t, scoreOut, &rankIn)

	rankOut, err := rankHandler.Execute(context.Background(), &rankIn)
	require.NoError(t, err)
	assert.Equal(t, 0, rankOut.MatchCount)
	assert.Equal(t, findcandidates.NoMentorsMessage, rankOut.Message)

	// A zero-match result skips notification entirely.
	notifyDB, notifyMock, err := sqlmock.New()
	require.NoError(t, err)
	defer notifyDB.Close()

	notifyHandler := notifymatches.NewHandler(
		&notifymatches.Config{
			EmailEnabled: true,
			FromEmail:    "no-reply@mentormatch.example",
			QueryTimeout: 2 * time.Second,
			Timeout:      5 * time.Second,
		},
		notifyDB, &fakeEmailSender{}, nil, logger.NewTestLogger(t),
	)

	var notifyIn notifymatches.Input
	carry(t, rankOut, &notifyIn)

	notifyOut, err := notifyHandler.Execute(context.Background(), &notifyIn)
	require.NoError(t, err)
	assert.Equal(t, notifymatches.StatusSkipped, notifyOut.EmailStatus)
	require.NoError(t, notifyMock.ExpectationsWereMet())
}
