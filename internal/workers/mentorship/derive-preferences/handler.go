// internal/workers/mentorship/derive-preferences/handler.go
package derivepreferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"
)

const (
	TaskType = "derive-preferences"
)

var (
	ErrPreferenceDerivationFailed = errors.New("PREFERENCE_DERIVATION_FAILED")
)

// preferencesSchema validates the oracle payload shape. Fields that fail
// validation are dropped individually; the rest are still accepted.
const preferencesSchema = `{
	"type": "object",
	"properties": {
		"requiredSkills": {"type": "array", "items": {"type": "string"}},
		"preferSameCollege": {"type": "boolean"},
		"preferSameDistrict": {"type": "boolean"},
		"minExperienceYears": {"type": "number"}
	}
}`

// ContentGenerator is the oracle surface used to derive preferences.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	config *Config
	oracle ContentGenerator
	logger logger.Logger
}

// NewHandler creates the handler. A nil oracle is valid and means every
// request gets default preferences.
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
		h.failJob(client, job, "PREFERENCE_DERIVATION_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// execute derives preferences from the mentee profile via the oracle.
// Oracle failures are absorbed: the output always carries usable preferences.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	prefs := DefaultPreferences()

	if h.oracle == nil || input.Mentee == nil {
		h.logger.Debug("oracle or mentee profile unavailable, using defaults", map[string]interface{}{
			"menteeId": input.MenteeID,
		})
		return &Output{Preferences: prefs, OracleUsed: false}, nil
	}

	oracleCtx, cancel := context.WithTimeout(ctx, h.config.OracleTimeout)
	defer cancel()

	raw, err := h.oracle.GenerateContent(oracleCtx, h.buildPrompt(input))
	if err != nil {
		metrics.OracleCalls.WithLabelValues(TaskType, "error").Inc()
		h.logger.Warn("preference oracle call failed, using defaults", map[string]interface{}{
			"menteeId": input.MenteeID,
			"error":    err.Error(),
		})
		return &Output{Preferences: prefs, OracleUsed: false}, nil
	}
	metrics.OracleCalls.WithLabelValues(TaskType, "success").Inc()

	derived, accepted := h.parsePreferences(raw)
	if !accepted {
		h.logger.Warn("oracle payload unusable, using defaults", map[string]interface{}{
			"menteeId": input.MenteeID,
		})
		return &Output{Preferences: prefs, OracleUsed: false}, nil
	}

	h.logger.Info("preferences derived", map[string]interface{}{
		"menteeId":           input.MenteeID,
		"requiredSkills":     derived.RequiredSkills,
		"minExperienceYears": derived.MinExperienceYears,
	})

	return &Output{Preferences: derived, OracleUsed: true}, nil
}

func (h *Handler) buildPrompt(input *Input) string {
	mentee := input.Mentee

	var sb strings.Builder
	sb.WriteString("Derive mentor matching preferences for this mentee.\n\n")
	if mentee.Headline != "" {
		sb.WriteString("Headline: " + mentee.Headline + "\n")
	}
	if mentee.Bio != "" {
		sb.WriteString("Bio: " + truncate(mentee.Bio, 1000) + "\n")
	}
	if len(mentee.Skills) > 0 {
		sb.WriteString("Skills: " + strings.Join(mentee.Skills, ", ") + "\n")
	}
	sb.WriteString("State: " + mentee.Location.State + "\n")
	if mentee.Location.District != "" {
		sb.WriteString("District: " + mentee.Location.District + "\n")
	}
	if mentee.Location.College != "" {
		sb.WriteString("College: " + mentee.Location.College + "\n")
	}
	sb.WriteString(`
Respond with only a JSON object, no prose, with exactly these keys:
{"requiredSkills": [string], "preferSameCollege": boolean, "preferSameDistrict": boolean, "minExperienceYears": integer}`)

	return sb.String()
}

// parsePreferences validates the oracle payload against the schema and
// merges valid fields onto the defaults. Invalid fields are dropped
// per-field; an unusable payload yields (defaults, false).
func (h *Handler) parsePreferences(raw string) (Preferences, bool) {
	prefs := DefaultPreferences()

	payload := extractJSON(raw)
	if payload == "" {
		return prefs, false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return prefs, false
	}

	invalid := map[string]bool{}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(preferencesSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil {
		return prefs, false
	}
	if !result.Valid() {
		for _, verr := range result.Errors() {
			field := verr.Field()
			if field == "(root)" {
				return prefs, false
			}
			if i := strings.Index(field, "."); i >= 0 {
				field = field[:i]
			}
			invalid[field] = true
		}
	}

	accepted := false

	if !invalid["requiredSkills"] {
		if arr, ok := fields["requiredSkills"].([]interface{}); ok {
			skills := make([]string, 0, len(arr))
			for _, v := range arr {
				if s, ok := v.(string); ok {
					s = strings.ToLower(strings.TrimSpace(s))
					if s != "" {
						skills = append(skills, s)
					}
				}
			}
			prefs.RequiredSkills = skills
			accepted = true
		}
	}

	if !invalid["preferSameCollege"] {
		if b, ok := fields["preferSameCollege"].(bool); ok {
			prefs.PreferSameCollege = b
			accepted = true
		}
	}

	if !invalid["preferSameDistrict"] {
		if b, ok := fields["preferSameDistrict"].(bool); ok {
			prefs.PreferSameDistrict = b
			accepted = true
		}
	}

	if !invalid["minExperienceYears"] {
		if f, ok := fields["minExperienceYears"].(float64); ok {
			years := int(f)
			if years < 1 {
				years = 1
			}
			prefs.MinExperienceYears = years
			accepted = true
		}
	}

	return prefs, accepted
}

// extractJSON strips markdown code fences and surrounding prose from an
// oracle response so the payload can be unmarshalled.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	// Tolerate prose around the object
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
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
