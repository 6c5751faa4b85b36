// internal/workers/mentorship/find-candidates/handler.go
package findcandidates

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stderrors "mentormatch-workers/internal/common/errors"
	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/common/metrics"
	"mentormatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "find-candidates"

	menteeCachePrefix = "mentee:profile:"
)

var (
	ErrMenteeNotFound          = errors.New("MENTEE_NOT_FOUND")
	ErrMenteeStateMissing      = errors.New("MENTEE_PROFILE_INCOMPLETE")
	ErrMentorQueryFailed       = errors.New("MENTOR_QUERY_FAILED")
	ErrMentorQueryTimeout      = errors.New("MENTOR_QUERY_TIMEOUT")
	ErrRelationshipQueryFailed = errors.New("RELATIONSHIP_QUERY_FAILED")
)

type Handler struct {
	config       *Config
	db           *sql.DB
	redis        *redis.Client
	es           *elasticsearch.Client
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
}

// NewHandler creates the handler. The Elasticsearch client may be nil;
// the skill pre-filter is then skipped entirely.
func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, es *elasticsearch.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		redis:        rdb,
		es:           es,
		logger:       scoped,
		errorHandler: stderrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := h.toStandardError(err, input.MenteeID)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
}

// toStandardError maps the package sentinels onto the shared error
// framework so retryable store failures fail the job with retries while
// business preconditions throw BPMN errors.
func (h *Handler) toStandardError(err error, menteeID string) *stderrors.StandardError {
	switch {
	case errors.Is(err, ErrMenteeNotFound):
		return stderrors.NewMenteeNotFoundError(menteeID)
	case errors.Is(err, ErrMenteeStateMissing):
		return stderrors.NewMenteeProfileIncompleteError(menteeID, "state")
	case errors.Is(err, ErrMentorQueryTimeout):
		return stderrors.NewMentorQueryTimeoutError()
	case errors.Is(err, ErrRelationshipQueryFailed):
		return stderrors.NewRelationshipQueryFailedError(err)
	default:
		return stderrors.NewMentorQueryFailedError(err)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	mentee := input.Mentee
	if mentee == nil {
		fetched, err := h.getMenteeProfile(ctx, input.MenteeID)
		if err != nil {
			return nil, err
		}
		mentee = fetched
	}

	if strings.TrimSpace(mentee.Location.State) == "" {
		return nil, fmt.Errorf("%w: mentee %s has no state on their profile", ErrMenteeStateMissing, mentee.UserID)
	}

	minExperience := input.Preferences.MinExperienceYears
	if minExperience < 1 {
		minExperience = 1
	}

	// Optional skill pre-filter. Failures here only widen the pool.
	var idFilter []string
	if h.es != nil && len(input.Preferences.RequiredSkills) > 0 {
		ids, err := h.searchMentorIDs(ctx, input.Preferences.RequiredSkills, mentee.Location.State)
		if err != nil {
			h.logger.Warn("skill pre-filter unavailable, querying full pool", map[string]interface{}{
				"menteeId": mentee.UserID,
				"error":    err.Error(),
			})
		} else {
			idFilter = ids
		}
	}

	candidates, err := h.queryMentors(ctx, mentee.UserID, mentee.Location.State, minExperience, idFilter)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrMentorQueryTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrMentorQueryFailed, err)
	}

	excluded, err := h.queryExcludedMentors(ctx, mentee.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationshipQueryFailed, err)
	}

	filtered := make([]models.MentorProfile, 0, len(candidates))
	for _, candidate := range candidates {
		if excluded[candidate.UserID] {
			continue
		}
		filtered = append(filtered, candidate)
		if len(filtered) >= h.config.MaxCandidates {
			break
		}
	}

	metrics.CandidatesRetrieved.WithLabelValues(TaskType).Observe(float64(len(filtered)))

	output := &Output{
		Mentee:      *mentee,
		Candidates:  filtered,
		Preferences: input.Preferences,
	}

	if len(filtered) == 0 {
		output.Message = NoMentorsMessage
		h.logger.Info("no candidates after filtering", map[string]interface{}{
			"menteeId": mentee.UserID,
			"state":    mentee.Location.State,
		})
		return output, nil
	}

	h.logger.Info("candidates retrieved", map[string]interface{}{
		"menteeId":   mentee.UserID,
		"state":      mentee.Location.State,
		"candidates": len(filtered),
		"excluded":   len(excluded),
	})

	return output, nil
}

// getMenteeProfile loads the mentee through the Redis cache with a
// Postgres fallback.
func (h *Handler) getMenteeProfile(ctx context.Context, menteeID string) (*models.MenteeProfile, error) {
	if menteeID == "" {
		return nil, fmt.Errorf("%w: empty mentee id", ErrMenteeNotFound)
	}

	cacheKey := menteeCachePrefix + menteeID
	if h.redis != nil {
		if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
			var profile models.MenteeProfile
			if err := json.Unmarshal([]byte(val), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	row := h.db.QueryRowContext(ctx, `
		SELECT user_id, COALESCE(headline, ''), COALESCE(bio, ''), skills,
			COALESCE(state, ''), COALESCE(district, ''), COALESCE(college, '')
		FROM profiles WHERE user_id = $1`, menteeID)

	var profile models.MenteeProfile
	var skills []byte
	err := row.Scan(
		&profile.UserID,
		&profile.Headline,
		&profile.Bio,
		&skills,
		&profile.Location.State,
		&profile.Location.District,
		&profile.Location.College,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrMenteeNotFound, menteeID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMentorQueryFailed, err)
	}

	if err := json.Unmarshal(skills, &profile.Skills); err != nil {
		profile.Skills = []string{}
	}

	if h.redis != nil {
		data, _ := json.Marshal(profile)
		h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)
	}

	return &profile, nil
}

// queryMentors applies the mandatory filters in SQL. Rows come back in
// creation order so downstream tie-breaking is deterministic.
func (h *Handler) queryMentors(ctx context.Context, menteeID, state string, minExperience int, idFilter []string) ([]models.MentorProfile, error) {
	query := `
		SELECT user_id, COALESCE(headline, ''), skills,
			COALESCE(state, ''), COALESCE(district, ''), COALESCE(college, ''),
			experience_years, available_to_mentor
		FROM profiles
		WHERE role = 'mentor'
		  AND user_id <> $1
		  AND state = $2
		  AND available_to_mentor = TRUE
		  AND experience_years >= $3`
	args := []interface{}{menteeID, state, minExperience}

	if idFilter != nil {
		query += ` AND user_id = ANY($4)`
		args = append(args, pq.Array(idFilter))
	}
	query += ` ORDER BY created_at, user_id`

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentors []models.MentorProfile
	for rows.Next() {
		var mentor models.MentorProfile
		var skills []byte
		err := rows.Scan(
			&mentor.UserID,
			&mentor.Headline,
			&skills,
			&mentor.Location.State,
			&mentor.Location.District,
			&mentor.Location.College,
			&mentor.ExperienceYears,
			&mentor.AvailableToMentor,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(skills, &mentor.Skills); err != nil {
			mentor.Skills = []string{}
		}
		mentors = append(mentors, mentor)
	}

	return mentors, rows.Err()
}

// queryExcludedMentors returns mentors that already have a pending or
// accepted relationship with the mentee.
func (h *Handler) queryExcludedMentors(ctx context.Context, menteeID string) (map[string]bool, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT mentor_id FROM mentorship_requests
		WHERE mentee_id = $1 AND status IN ($2, $3)`,
		menteeID, models.RequestStatusPending, models.RequestStatusAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	excluded := make(map[string]bool)
	for rows.Next() {
		var mentorID string
		if err := rows.Scan(&mentorID); err != nil {
			return nil, err
		}
		excluded[mentorID] = true
	}

	return excluded, rows.Err()
}

// searchMentorIDs narrows the pool to mentors indexed with at least one
// of the required skills. This is an optimization only; correctness does
// not depend on it.
func (h *Handler) searchMentorIDs(ctx context.Context, skills []string, state string) ([]string, error) {
	normalized := make([]string, 0, len(skills))
	for _, skill := range skills {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(skill)))
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"terms": map[string]interface{}{"skills": normalized},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"state": state},
					},
				},
			},
		},
		"_source": false,
	}
	body, _ := json.Marshal(queryBody)

	size := h.config.MaxCandidates
	req := esapi.SearchRequest{
		Index: []string{h.config.SearchIndex},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, h.es)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.ID)
	}

	return ids, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
