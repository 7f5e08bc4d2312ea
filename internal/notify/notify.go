// Package notify delivers order confirmations when a kitchen ticket
// finalizes: an SMS to the caller and an email to the owner. Delivery
// failures are logged and never surfaced to the caller.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/session"
)

// Config selects the channels and their addressing.
type Config struct {
	SMSEnabled   bool
	SenderID     string
	EmailEnabled bool
	FromEmail    string
	OwnerEmail   string
	Region       string
	BusinessName string
}

type snsAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type sesAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, opts ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSNotifier sends the SMS over SNS and the owner email over SES.
type AWSNotifier struct {
	sns    snsAPI
	ses    sesAPI
	config Config
	logger logger.Logger
}

func NewAWSNotifier(ctx context.Context, cfg Config, log logger.Logger) (*AWSNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}
	return &AWSNotifier{
		sns:    sns.NewFromConfig(awsCfg),
		ses:    ses.NewFromConfig(awsCfg),
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}, nil
}

// OrderFinalized fans the ticket out to the enabled channels. It never
// returns an error; the kitchen ticket is already placed whatever
// happens here.
func (n *AWSNotifier) OrderFinalized(ctx context.Context, st *session.State, ticket *session.Ticket) {
	if n.config.SMSEnabled && st.CallerPhone != "" {
		if err := n.sendSMS(ctx, st.CallerPhone, ticket); err != nil {
			n.logger.Error("order confirmation sms failed", map[string]interface{}{
				"session_id": st.SessionID,
				"error":      err.Error(),
			})
		}
	}
	if n.config.EmailEnabled && n.config.OwnerEmail != "" {
		if err := n.sendOwnerEmail(ctx, st, ticket); err != nil {
			n.logger.Error("owner order email failed", map[string]interface{}{
				"session_id": st.SessionID,
				"error":      err.Error(),
			})
		}
	}
}

func (n *AWSNotifier) sendSMS(ctx context.Context, phone string, ticket *session.Ticket) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(n.smsBody(ticket)),
	}
	if n.config.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.config.SenderID),
			},
		}
	}
	if _, err := n.sns.Publish(ctx, input); err != nil {
		return stderrors.NewNotifySendFailedError("sms", err)
	}
	return nil
}

func (n *AWSNotifier) sendOwnerEmail(ctx context.Context, st *session.State, ticket *session.Ticket) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.config.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.config.OwnerEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{
				Data: aws.String(fmt.Sprintf("New pickup order %s - $%.2f", st.SessionID, ticket.Total)),
			},
			Body: &sestypes.Body{
				Text: &sestypes.Content{
					Data: aws.String(n.emailBody(st, ticket)),
				},
			},
		},
	}
	if _, err := n.ses.SendEmail(ctx, input); err != nil {
		return stderrors.NewNotifySendFailedError("email", err)
	}
	return nil
}

func (n *AWSNotifier) smsBody(ticket *session.Ticket) string {
	return fmt.Sprintf("Your order at %s is confirmed: %s. Total $%.2f before tax and fees. %s",
		n.config.BusinessName, renderTicketItems(ticket), ticket.Total, ticket.Note)
}

func (n *AWSNotifier) emailBody(st *session.State, ticket *session.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New pickup order from session %s\n\n", st.SessionID)
	for _, item := range ticket.Items {
		fmt.Fprintf(&b, "  %dx %s ($%.2f)\n", item.Quantity, item.Name, item.LineTotal)
	}
	fmt.Fprintf(&b, "\nTotal: $%.2f before tax and fees\n", ticket.Total)
	fmt.Fprintf(&b, "Note: %s\n", ticket.Note)
	if st.CallerPhone != "" {
		fmt.Fprintf(&b, "Caller: %s\n", st.CallerPhone)
	}
	return b.String()
}

func renderTicketItems(ticket *session.Ticket) string {
	parts := make([]string, 0, len(ticket.Items))
	for _, item := range ticket.Items {
		parts = append(parts, fmt.Sprintf("%d %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}
