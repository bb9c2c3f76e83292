// Package notify announces finished harvest runs.
package notify

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	awsclient "sdmx-harvester/internal/common/aws"
	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
)

// Notification describes one finished run. Payload is sent as JSON.
type Notification struct {
	Subject string
	Source  string
	Status  string
	RunID   string
	Payload interface{}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Publisher is the subset of the SNS client used here.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// snsSubjectLimit is the maximum subject length SNS accepts.
const snsSubjectLimit = 100

type SNSNotifier struct {
	publisher Publisher
	topicARN  string
	logger    logger.Logger
}

func NewSNSNotifier(publisher Publisher, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		publisher: publisher,
		topicARN:  topicARN,
		logger:    log.WithFields(map[string]interface{}{"component": "notify", "topicArn": topicARN}),
	}
}

func (n *SNSNotifier) Notify(ctx context.Context, msg Notification) error {
	body, err := json.Marshal(msg.Payload)
	if err != nil {
		return commonerrors.NewNotificationSendFailedError("sns", err)
	}

	subject := msg.Subject
	if len(subject) > snsSubjectLimit {
		subject = subject[:snsSubjectLimit]
	}

	out, err := n.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: awsclient.StringAttributes(map[string]string{
			"source": msg.Source,
			"status": msg.Status,
			"runId":  msg.RunID,
		}),
	})
	if err != nil {
		return commonerrors.NewNotificationSendFailedError("sns", err)
	}

	n.logger.Info("run notification published", map[string]interface{}{
		"runId":     msg.RunID,
		"status":    msg.Status,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}

// LogNotifier only logs; used when no topic is configured.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info(msg.Subject, map[string]interface{}{
		"source": msg.Source,
		"status": msg.Status,
		"runId":  msg.RunID,
	})
	return nil
}
