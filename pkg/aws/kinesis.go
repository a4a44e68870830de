// pkg/aws/kinesis.go
package aws

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/rs/zerolog"
)

// KinesisClient ships analytics events to the platform firehose stream.
type KinesisClient struct {
	client     *kinesis.Kinesis
	streamName string
	logger     zerolog.Logger
}

func NewKinesisClient(region, streamName string, logger zerolog.Logger) *KinesisClient {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
	}))

	return &KinesisClient{
		client:     kinesis.New(sess),
		streamName: streamName,
		logger:     logger.With().Str("component", "kinesis").Logger(),
	}
}

func (k *KinesisClient) PutRecord(data string) error {
	result, err := k.client.PutRecord(&kinesis.PutRecordInput{
		Data:         []byte(data),
		PartitionKey: aws.String("default"),
		StreamName:   aws.String(k.streamName),
	})
	if err != nil {
		return fmt.Errorf("failed to put record to Kinesis: %w", err)
	}

	k.logger.Debug().Str("sequence", aws.StringValue(result.SequenceNumber)).Msg("✅ Event published to Kinesis")
	return nil
}

// PublishEvent serializes an analytics event and ships it to the firehose.
func (k *KinesisClient) PublishEvent(event map[string]interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return k.PutRecord(string(payload))
}
