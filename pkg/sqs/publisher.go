package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"praxis-recording/config"
	"praxis-recording/dto"
	"strings"
)

type Publisher struct {
	client   sqsiface.SQSAPI
	queueURL string
	fifo     bool
}

// NewPublisher builds a publisher from the default AWS credential chain. A
// queue URL ending in .fifo switches on message groups and deduplication ids.
func NewPublisher(cfg *config.SQS) (*Publisher, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return NewPublisherWithClient(awssqs.New(sess), cfg.QueueURL), nil
}

func NewPublisherWithClient(client sqsiface.SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

func (p *Publisher) FIFO() bool {
	return p.fifo
}

func (p *Publisher) Publish(ctx context.Context, envelope dto.TranscribeEnvelope) error {
	body, err := json.Marshal(envelope.Message)
	if err != nil {
		return err
	}

	input := &awssqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]*awssqs.MessageAttributeValue{
			"operation": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(envelope.Message.Operation)),
			},
		},
	}
	if p.fifo {
		input.MessageDeduplicationId = aws.String(envelope.DeduplicationId)
		input.MessageGroupId = aws.String(envelope.GroupId)
	}

	if _, err := p.client.SendMessageWithContext(ctx, input); err != nil {
		return fmt.Errorf("send %s to sqs: %w", envelope.DeduplicationId, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
