package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"
	"github.com/trystantbm/portfolio-contact/internal/models"
	"golang.org/x/time/rate"
)

// EmailService delivers a contact submission to the site owner
type EmailService interface {
	SendContactEmail(ctx context.Context, sub *models.ContactSubmission) models.DeliveryOutcome
}

// Sender identifies the fixed From address of outgoing contact mail
type Sender struct {
	Address string
	Name    string
}

const submittedAtLayout = "2006-01-02T15:04:05.000Z"

// ComposeContactEmail builds the plaintext body for a submission
func ComposeContactEmail(sub *models.ContactSubmission, submittedAt time.Time) string {
	return fmt.Sprintf(`New Contact Form Submission

Name: %s
Email: %s
Message:
%s

---
Submitted at: %s`, sub.Name, sub.Email, sub.Message, submittedAt.UTC().Format(submittedAtLayout))
}

// ContactSubject returns the subject line for a submission
func ContactSubject(sub *models.ContactSubmission) string {
	return "Portfolio Contact: " + sub.Name
}

type mailChannelsAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailChannelsPersonalization struct {
	To []mailChannelsAddress `json:"to"`
}

type mailChannelsContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailChannelsMessage struct {
	Personalizations []mailChannelsPersonalization `json:"personalizations"`
	From             mailChannelsAddress           `json:"from"`
	Subject          string                        `json:"subject"`
	Content          []mailChannelsContent         `json:"content"`
}

// MailChannelsEmailService sends contact mail through the MailChannels transactional API
type MailChannelsEmailService struct {
	client    *http.Client
	endpoint  string
	sender    Sender
	recipient string
	logger    *slog.Logger
	now       func() time.Time
}

// NewMailChannelsEmailService creates a MailChannels dispatcher with a bounded per-call timeout
func NewMailChannelsEmailService(endpoint string, sender Sender, recipient string, timeout time.Duration, logger *slog.Logger) *MailChannelsEmailService {
	return &MailChannelsEmailService{
		client:    &http.Client{Timeout: timeout},
		endpoint:  endpoint,
		sender:    sender,
		recipient: recipient,
		logger:    logger,
		now:       time.Now,
	}
}

// SendContactEmail posts one message. Provider error text is logged, never returned.
func (s *MailChannelsEmailService) SendContactEmail(ctx context.Context, sub *models.ContactSubmission) models.DeliveryOutcome {
	payload, err := json.Marshal(mailChannelsMessage{
		Personalizations: []mailChannelsPersonalization{
			{To: []mailChannelsAddress{{Email: s.recipient}}},
		},
		From:    mailChannelsAddress{Email: s.sender.Address, Name: s.sender.Name},
		Subject: ContactSubject(sub),
		Content: []mailChannelsContent{
			{Type: "text/plain", Value: ComposeContactEmail(sub, s.now())},
		},
	})
	if err != nil {
		return models.DeliveryOutcome{Error: "Email service error"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("failed to build mailchannels request", slog.Any("error", err))
		return models.DeliveryOutcome{Error: "Email service error"}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("email sending error", slog.Any("error", err))
		return models.DeliveryOutcome{Error: "Email service error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		s.logger.Error("mailchannels API error",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)))
		return models.DeliveryOutcome{Error: "Failed to send email"}
	}

	s.logger.Info("contact email sent",
		slog.String("submission_id", sub.ID),
		slog.String("provider", "mailchannels"))

	return models.DeliveryOutcome{Success: true}
}

// SESAPI is the subset of the SES client used for delivery
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends contact mail using AWS SES
type AWSSESEmailService struct {
	sesClient SESAPI
	sender    Sender
	recipient string
	logger    *slog.Logger
	now       func() time.Time
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region string, sender Sender, recipient string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewAWSSESEmailServiceWithClient(ses.NewFromConfig(cfg), sender, recipient, logger), nil
}

// NewAWSSESEmailServiceWithClient wraps an existing SES client
func NewAWSSESEmailServiceWithClient(client SESAPI, sender Sender, recipient string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient: client,
		sender:    sender,
		recipient: recipient,
		logger:    logger,
		now:       time.Now,
	}
}

// SendContactEmail sends the submission via SES with Reply-To set to the submitter
func (s *AWSSESEmailService) SendContactEmail(ctx context.Context, sub *models.ContactSubmission) models.DeliveryOutcome {
	input := &ses.SendEmailInput{
		Source: aws.String(fmt.Sprintf("%s <%s>", s.sender.Name, s.sender.Address)),
		Destination: &types.Destination{
			ToAddresses: []string{s.recipient},
		},
		ReplyToAddresses: []string{sub.Email},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(ContactSubject(sub)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(ComposeContactEmail(sub, s.now())),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			s.logger.Error("SES API error",
				slog.String("code", apiErr.ErrorCode()),
				slog.Any("error", err))
			return models.DeliveryOutcome{Error: "Failed to send email"}
		}
		s.logger.Error("email sending error", slog.Any("error", err))
		return models.DeliveryOutcome{Error: "Email service error"}
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.logger.Info("contact email sent",
		slog.String("submission_id", sub.ID),
		slog.String("provider", "ses"),
		slog.String("message_id", messageID))

	return models.DeliveryOutcome{Success: true}
}

// DevEmailService logs the composed message instead of sending it
type DevEmailService struct {
	sender    Sender
	recipient string
	logger    *slog.Logger
}

// NewDevEmailService creates a dispatcher for development deployments
func NewDevEmailService(sender Sender, recipient string, logger *slog.Logger) *DevEmailService {
	return &DevEmailService{sender: sender, recipient: recipient, logger: logger}
}

// SendContactEmail always succeeds without any network call
func (s *DevEmailService) SendContactEmail(ctx context.Context, sub *models.ContactSubmission) models.DeliveryOutcome {
	s.logger.InfoContext(ctx, "[DEV MODE] email would be sent",
		slog.String("to", s.recipient),
		slog.String("from", s.sender.Address),
		slog.String("subject", ContactSubject(sub)),
		slog.String("body", ComposeContactEmail(sub, time.Now())))

	return models.DeliveryOutcome{Success: true}
}

// ThrottledEmailService caps the process-wide outbound send rate
type ThrottledEmailService struct {
	next    EmailService
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewThrottledEmailService allows sendsPerMinute sends with an equal burst.
// A non-positive rate disables the throttle.
func NewThrottledEmailService(next EmailService, sendsPerMinute int, logger *slog.Logger) EmailService {
	if sendsPerMinute <= 0 {
		return next
	}
	return &ThrottledEmailService{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(sendsPerMinute)), sendsPerMinute),
		logger:  logger,
	}
}

// SendContactEmail waits for a send slot, bounded by ctx
func (s *ThrottledEmailService) SendContactEmail(ctx context.Context, sub *models.ContactSubmission) models.DeliveryOutcome {
	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn("outbound email throttle exceeded",
			slog.String("submission_id", sub.ID),
			slog.Any("error", err))
		return models.DeliveryOutcome{Error: "Email service busy"}
	}
	return s.next.SendContactEmail(ctx, sub)
}
