package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsPublisher is the part of the SNS client the sender uses.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender publishes messages to an SNS topic consumed by a mail worker.
type SNSSender struct {
	client   snsPublisher
	topicARN string
}

// NewSNSSender loads the default AWS config, optionally pinned to region.
func NewSNSSender(ctx context.Context, topicARN, region string) (*SNSSender, error) {
	if topicARN == "" {
		return nil, errors.New("notify: sns topic arn not set")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, errCfg := config.LoadDefaultConfig(ctx, opts...)
	if errCfg != nil {
		return nil, fmt.Errorf("notify: load aws config: %w", errCfg)
	}
	return &SNSSender{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// Send publishes msg as JSON with its kind as a message attribute.
func (s *SNSSender) Send(ctx context.Context, msg Message) error {
	body, errMarshal := json.Marshal(msg)
	if errMarshal != nil {
		return fmt.Errorf("notify: marshal message: %w", errMarshal)
	}
	_, errPublish := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String(truncate(msg.Subject, 99)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String("email." + msg.Kind),
			},
		},
	})
	if errPublish != nil {
		return fmt.Errorf("notify: sns publish to %s: %w", s.topicARN, errPublish)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(stripCRLF(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
