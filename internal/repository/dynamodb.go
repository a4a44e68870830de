// internal/repository/dynamodb.go
package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"

	"github.com/fanlive/live-platform/internal/config"
	"github.com/fanlive/live-platform/internal/models"
)

// ErrStreamNotFound is returned when no stream matches the lookup.
var ErrStreamNotFound = fmt.Errorf("stream not found")

type DynamoDBRepository interface {
	CreateStream(ctx context.Context, stream *models.Stream) error
	GetStreamByID(ctx context.Context, streamID string) (*models.Stream, error)
	GetStreamByStreamKey(ctx context.Context, streamKey string) (*models.Stream, error)
	GetStreamsByStatus(ctx context.Context, status models.StreamStatus) ([]*models.Stream, error)
	UpdateStream(ctx context.Context, stream *models.Stream) error
	AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error
	AppendGift(ctx context.Context, gift *models.Gift) error
}

type dynamoDBRepository struct {
	db           *dynamodb.DynamoDB
	streamTable  string
	messageTable string
	giftTable    string
}

func NewDynamoDBRepository(cfg config.DynamoDBConfig) (DynamoDBRepository, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)
	}
	// For local development with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &dynamoDBRepository{
		db:           dynamodb.New(sess),
		streamTable:  cfg.StreamTable,
		messageTable: cfg.MessageTable,
		giftTable:    cfg.GiftTable,
	}, nil
}

func (r *dynamoDBRepository) CreateStream(ctx context.Context, stream *models.Stream) error {
	item, err := dynamodbattribute.MarshalMap(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %w", err)
	}

	_, err = r.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.streamTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put stream item: %w", err)
	}

	return nil
}

func (r *dynamoDBRepository) GetStreamByID(ctx context.Context, streamID string) (*models.Stream, error) {
	result, err := r.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.streamTable),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {
				S: aws.String(streamID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}

	if result.Item == nil {
		return nil, ErrStreamNotFound
	}

	var stream models.Stream
	err = dynamodbattribute.UnmarshalMap(result.Item, &stream)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}

	return &stream, nil
}

func (r *dynamoDBRepository) GetStreamByStreamKey(ctx context.Context, streamKey string) (*models.Stream, error) {
	filterExpr := expression.Equal(expression.Name("stream_key"), expression.Value(streamKey))
	expr, err := expression.NewBuilder().WithFilter(filterExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := r.db.ScanWithContext(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(r.streamTable),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan streams: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, ErrStreamNotFound
	}

	var stream models.Stream
	err = dynamodbattribute.UnmarshalMap(result.Items[0], &stream)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}

	return &stream, nil
}

func (r *dynamoDBRepository) GetStreamsByStatus(ctx context.Context, status models.StreamStatus) ([]*models.Stream, error) {
	filterExpr := expression.Equal(expression.Name("status"), expression.Value(string(status)))
	expr, err := expression.NewBuilder().WithFilter(filterExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	result, err := r.db.ScanWithContext(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(r.streamTable),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan streams: %w", err)
	}

	var streams []*models.Stream
	for _, item := range result.Items {
		var stream models.Stream
		err = dynamodbattribute.UnmarshalMap(item, &stream)
		if err != nil {
			continue // Skip invalid items
		}
		streams = append(streams, &stream)
	}

	return streams, nil
}

func (r *dynamoDBRepository) UpdateStream(ctx context.Context, stream *models.Stream) error {
	item, err := dynamodbattribute.MarshalMap(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %w", err)
	}

	_, err = r.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.streamTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to update stream item: %w", err)
	}

	return nil
}

func (r *dynamoDBRepository) AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	item, err := dynamodbattribute.MarshalMap(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	_, err = r.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.messageTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put chat message item: %w", err)
	}

	return nil
}

func (r *dynamoDBRepository) AppendGift(ctx context.Context, gift *models.Gift) error {
	item, err := dynamodbattribute.MarshalMap(gift)
	if err != nil {
		return fmt.Errorf("failed to marshal gift: %w", err)
	}

	_, err = r.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.giftTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put gift item: %w", err)
	}

	return nil
}
