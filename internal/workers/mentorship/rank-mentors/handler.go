// internal/workers/mentorship/rank-mentors/handler.go
package rankmentors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "rank-mentors"

	// Same-college matches get the strongest boost, same-district a
	// smaller one. Applied only when the mentee's preferences ask for it.
	collegeWeight  = 1.2
	districtWeight = 1.1

	// AI scores influence ranking at half the strength of the
	// deterministic base score.
	aiScoreWeight = 0.5
)

var ErrRankingFailed = errors.New("RANKING_FAILED")

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
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
		h.failJob(client, job, "RANKING_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	output := &Output{
		MatchID:  uuid.New().String(),
		MenteeID: input.Mentee.UserID,
		Mentors:  []RankedMentor{},
		Message:  input.Message,
	}

	if len(input.Scored) == 0 {
		h.logger.Info("no candidates to rank", map[string]interface{}{
			"menteeId": input.Mentee.UserID,
		})
		return output, nil
	}

	ranked := make([]RankedMentor, len(input.Scored))
	for i, sc := range input.Scored {
		ranked[i] = RankedMentor{
			MentorID:        sc.Mentor.UserID,
			Headline:        sc.Mentor.Headline,
			Skills:          sc.Mentor.Skills,
			Location:        sc.Mentor.Location,
			ExperienceYears: sc.Mentor.ExperienceYears,
			LocationTier:    sc.LocationTier,
			SkillOverlap:    sc.SkillOverlap,
			AIScore:         sc.AIScore,
			FinalScore:      h.calculateFinalScore(&sc, input.Preferences),
		}
	}

	// Stable sort keeps retrieval order for exact ties.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].LocationTier != ranked[j].LocationTier {
			return ranked[i].LocationTier > ranked[j].LocationTier
		}
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	// Only mentors in the best tier present survive: a same-college
	// match never shares the list with a state-only one.
	bestTier := ranked[0].LocationTier
	cut := len(ranked)
	for i, rm := range ranked {
		if rm.LocationTier != bestTier {
			cut = i
			break
		}
	}
	ranked = ranked[:cut]

	if len(ranked) > h.config.MaxResults {
		ranked = ranked[:h.config.MaxResults]
	}

	output.Mentors = ranked
	output.MatchCount = len(ranked)

	h.logger.Info("mentors ranked", map[string]interface{}{
		"menteeId":   input.Mentee.UserID,
		"matchId":    output.MatchID,
		"matchCount": output.MatchCount,
		"bestTier":   bestTier,
	})

	return output, nil
}

// calculateFinalScore blends the deterministic base score with the
// optional AI score, then applies the preference-driven location weight.
func (h *Handler) calculateFinalScore(sc *ScoredCandidate, prefs Preferences) int {
	score := float64(sc.BaseScore)
	if sc.AIScore != nil {
		score += float64(*sc.AIScore) * aiScoreWeight
	}
	return int(math.Round(score * h.locationWeight(sc.LocationTier, prefs)))
}

func (h *Handler) locationWeight(tier int, prefs Preferences) float64 {
	switch {
	case prefs.PreferSameCollege && tier >= 3:
		return collegeWeight
	case prefs.PreferSameDistrict && tier >= 2:
		return districtWeight
	default:
		return 1.0
	}
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
