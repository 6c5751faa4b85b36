// internal/workers/mentorship/score-candidates/handler.go
package scorecandidates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/common/metrics"
	"mentormatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-candidates"
)

var (
	ErrScoringFailed = errors.New("SCORING_FAILED")

	integerPattern = regexp.MustCompile(`-?\d+`)
)

// ContentGenerator is the oracle surface used for AI-assisted scoring.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	config *Config
	oracle ContentGenerator
	logger logger.Logger
}

// NewHandler creates the handler. A nil oracle disables AI-assisted
// scoring; every candidate then carries a nil AIScore.
func NewHandler(config *Config, oracle ContentGenerator, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		oracle: oracle,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		h.failJob(client, job, "SCORING_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	scored := make([]ScoredCandidate, len(input.Candidates))
	for i, mentor := range input.Candidates {
		tier := h.calculateLocationTier(input.Mentee.Location, mentor.Location)
		overlap := h.calculateSkillOverlap(input.Mentee.Skills, mentor.Skills)
		scored[i] = ScoredCandidate{
			Mentor:       mentor,
			LocationTier: tier,
			SkillOverlap: overlap,
			BaseScore:    h.calculateBaseScore(tier, overlap),
		}
	}

	if h.oracle != nil && len(scored) > 0 {
		h.applyOracleScores(ctx, input, scored)
	}

	h.logger.Info("candidates scored", map[string]interface{}{
		"menteeId":   input.Mentee.UserID,
		"candidates": len(scored),
	})

	return &Output{
		Mentee:      input.Mentee,
		Scored:      scored,
		Preferences: input.Preferences,
		Message:     input.Message,
	}, nil
}

// calculateLocationTier matches locations top-down: a district match only
// counts inside a state match, a college match only inside a district match.
// Blank levels never match.
func (h *Handler) calculateLocationTier(mentee, mentor models.Location) int {
	if !locationEqual(mentee.State, mentor.State) {
		return TierNone
	}

	tier := TierState
	if mentee.District != "" && locationEqual(mentee.District, mentor.District) {
		tier = TierStateDistrict
		if mentee.College != "" && locationEqual(mentee.College, mentor.College) {
			tier = TierStateDistrictCollege
		}
	}
	return tier
}

func locationEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// calculateSkillOverlap is the Jaccard index over normalized skill sets.
func (h *Handler) calculateSkillOverlap(menteeSkills, mentorSkills []string) float64 {
	a := normalizeSkillSet(menteeSkills)
	b := normalizeSkillSet(mentorSkills)

	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for skill := range a {
		if b[skill] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func normalizeSkillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill != "" {
			set[skill] = true
		}
	}
	return set
}

// calculateBaseScore blends tier and overlap. It is intentionally
// unbounded above 100: a perfect same-college overlap scores 220.
func (h *Handler) calculateBaseScore(tier int, overlap float64) int {
	return tier*60 + int(math.Round(overlap*40))
}

// applyOracleScores requests an AI score per candidate, at most
// MaxConcurrentScores in flight. Each call is attempted exactly once and
// failures leave the candidate's AIScore nil.
func (h *Handler) applyOracleScores(ctx context.Context, input *Input, scored []ScoredCandidate) {
	sem := make(chan struct{}, h.config.MaxConcurrentScores)
	var wg sync.WaitGroup

	for i := range scored {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			oracleCtx, cancel := context.WithTimeout(ctx, h.config.OracleTimeout)
			defer cancel()

			raw, err := h.oracle.GenerateContent(oracleCtx, h.buildScorePrompt(input, &scored[i]))
			if err != nil {
				metrics.OracleCalls.WithLabelValues(TaskType, "error").Inc()
				h.logger.Debug("oracle scoring call failed", map[string]interface{}{
					"mentorId": scored[i].Mentor.UserID,
					"error":    err.Error(),
				})
				return
			}

			score, ok := parseOracleScore(raw)
			if !ok {
				metrics.OracleCalls.WithLabelValues(TaskType, "unparseable").Inc()
				h.logger.Debug("oracle score unparseable", map[string]interface{}{
					"mentorId": scored[i].Mentor.UserID,
				})
				return
			}

			metrics.OracleCalls.WithLabelValues(TaskType, "success").Inc()
			scored[i].AIScore = &score
		}(i)
	}

	wg.Wait()
}

func (h *Handler) buildScorePrompt(input *Input, candidate *ScoredCandidate) string {
	var sb strings.Builder
	sb.WriteString("Rate how well this mentor fits this mentee on a scale of 0 to 100.\n\n")
	sb.WriteString("Mentee skills: " + strings.Join(input.Mentee.Skills, ", ") + "\n")
	if len(input.Preferences.RequiredSkills) > 0 {
		sb.WriteString("Mentee wants to learn: " + strings.Join(input.Preferences.RequiredSkills, ", ") + "\n")
	}
	sb.WriteString("Mentor skills: " + strings.Join(candidate.Mentor.Skills, ", ") + "\n")
	sb.WriteString(fmt.Sprintf("Mentor experience: %d years\n", candidate.Mentor.ExperienceYears))
	if candidate.Mentor.Headline != "" {
		sb.WriteString("Mentor headline: " + candidate.Mentor.Headline + "\n")
	}
	sb.WriteString("\nRespond with a single integer between 0 and 100 and nothing else.")
	return sb.String()
}

// parseOracleScore extracts the first integer in the response and clamps
// it to [0, 100]. A response without an integer is unusable.
func parseOracleScore(raw string) (int, bool) {
	match := integerPattern.FindString(raw)
	if match == "" {
		return 0, false
	}

	score, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, true
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
