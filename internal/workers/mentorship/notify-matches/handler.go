// internal/workers/mentorship/notify-matches/handler.go
package notifymatches

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stderrors "mentormatch-workers/internal/common/errors"
	"mentormatch-workers/internal/common/logger"
	"mentormatch-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-matches"
)

var (
	ErrMenteeNotFound         = errors.New("MENTEE_NOT_FOUND")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// EmailSender and SMSSender are the delivery surfaces; production wiring
// backs them with the SES and SNS clients.
type EmailSender interface {
	SendSimpleEmail(ctx context.Context, from, to, subject, body string) error
}

type SMSSender interface {
	PublishSMS(ctx context.Context, phoneNumber, message, senderID string) error
}

type Handler struct {
	config       *Config
	db           *sql.DB
	email        EmailSender
	sms          SMSSender
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		email:        email,
		sms:          sms,
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

func (h *Handler) toStandardError(err error, menteeID string) *stderrors.StandardError {
	switch {
	case errors.Is(err, ErrMenteeNotFound):
		return stderrors.NewMenteeNotFoundError(menteeID)
	default:
		return stderrors.NewNotificationSendFailedError("match-list", err)
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if input.MenteeID == "" {
		return nil, errors.New("menteeId is required")
	}

	output := &Output{
		NotificationID: uuid.New().String(),
		MatchID:        input.MatchID,
		MenteeID:       input.MenteeID,
		EmailStatus:    StatusDisabled,
		SMSStatus:      StatusDisabled,
	}

	// An empty match list is a normal outcome, not worth a notification.
	if input.MatchCount == 0 {
		output.EmailStatus = StatusSkipped
		output.SMSStatus = StatusSkipped
		h.logger.Info("no matches to notify about", map[string]interface{}{
			"menteeId": input.MenteeID,
			"matchId":  input.MatchID,
		})
		return output, nil
	}

	contact, err := h.getContact(ctx, input.MenteeID)
	if err != nil {
		return nil, err
	}

	subject, body := buildEmailContent(contact.Name, input)
	smsText := buildSMSContent(input)

	if h.config.EmailEnabled && h.email != nil {
		if contact.Email == "" {
			output.EmailStatus = StatusSkipped
		} else if err := h.email.SendSimpleEmail(ctx, h.config.FromEmail, contact.Email, subject, body); err != nil {
			output.EmailStatus = StatusFailed
			h.logger.Error("email notification failed", map[string]interface{}{
				"menteeId": input.MenteeID,
				"error":    err.Error(),
			})
		} else {
			output.EmailStatus = StatusSent
		}
	}

	if h.config.SMSEnabled && h.sms != nil {
		if contact.Phone == "" {
			output.SMSStatus = StatusSkipped
		} else if err := h.sms.PublishSMS(ctx, contact.Phone, smsText, h.config.SMSSenderID); err != nil {
			output.SMSStatus = StatusFailed
			h.logger.Error("sms notification failed", map[string]interface{}{
				"menteeId": input.MenteeID,
				"error":    err.Error(),
			})
		} else {
			output.SMSStatus = StatusSent
		}
	}

	// A job only fails when a send was attempted and nothing got through.
	delivered := output.EmailStatus == StatusSent || output.SMSStatus == StatusSent
	attempted := output.EmailStatus == StatusFailed || output.SMSStatus == StatusFailed
	if attempted && !delivered {
		return nil, fmt.Errorf("%w: no channel delivered for mentee %s", ErrNotificationSendFailed, input.MenteeID)
	}

	h.logger.Info("match notification processed", map[string]interface{}{
		"menteeId":       input.MenteeID,
		"matchId":        input.MatchID,
		"notificationId": output.NotificationID,
		"emailStatus":    output.EmailStatus,
		"smsStatus":      output.SMSStatus,
	})

	return output, nil
}

func (h *Handler) getContact(ctx context.Context, menteeID string) (*Contact, error) {
	queryCtx, cancel := context.WithTimeout(ctx, h.config.QueryTimeout)
	defer cancel()

	query := `
		SELECT COALESCE(email, ''), COALESCE(phone, ''), COALESCE(full_name, '')
		FROM users
		WHERE user_id = $1`

	var contact Contact
	err := h.db.QueryRowContext(queryCtx, query, menteeID).Scan(&contact.Email, &contact.Phone, &contact.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrMenteeNotFound, menteeID)
		}
		return nil, fmt.Errorf("query contact: %w", err)
	}

	return &contact, nil
}

func buildEmailContent(name string, input *Input) (subject, body string) {
	subject = fmt.Sprintf("We found %d mentor matches for you", input.MatchCount)

	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}

	var sb strings.Builder
	sb.WriteString(greeting + ",\n\n")
	sb.WriteString(fmt.Sprintf("Good news: %d mentors near you are ready to help.\n\n", input.MatchCount))
	for i, m := range input.Mentors {
		if i >= 3 {
			sb.WriteString(fmt.Sprintf("...and %d more.\n", len(input.Mentors)-i))
			break
		}
		line := m.Headline
		if line == "" {
			line = strings.Join(m.Skills, ", ")
		}
		sb.WriteString(fmt.Sprintf("  %d. %s (%d years experience)\n", i+1, line, m.ExperienceYears))
	}
	sb.WriteString("\nOpen the app to see your full list and send a request.\n")
	return subject, sb.String()
}

func buildSMSContent(input *Input) string {
	return fmt.Sprintf("MentorMatch: %d mentors matched your profile. Open the app to connect.", input.MatchCount)
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
