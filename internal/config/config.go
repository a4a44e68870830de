// internal/config/config.go
package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	AWS      AWSConfig
}

type ServerConfig struct {
	DiscoveryPort string
	RealtimePort  string
}

type DynamoDBConfig struct {
	Region          string
	StreamTable     string
	MessageTable    string
	GiftTable       string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type AWSConfig struct {
	Region            string
	KinesisStreamName string
	S3BucketName      string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			DiscoveryPort: getEnv("DISCOVERY_PORT", ":8080"),
			RealtimePort:  getEnv("REALTIME_PORT", ":8081"),
		},
		DynamoDB: DynamoDBConfig{
			Region:          getEnv("AWS_REGION", "us-west-2"),
			StreamTable:     getEnv("DYNAMODB_STREAM_TABLE", "streams"),
			MessageTable:    getEnv("DYNAMODB_MESSAGE_TABLE", "stream_messages"),
			GiftTable:       getEnv("DYNAMODB_GIFT_TABLE", "stream_gifts"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("DYNAMODB_ENDPOINT", ""),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:            getEnv("AWS_REGION", "us-west-2"),
			KinesisStreamName: getEnv("KINESIS_STREAM_NAME", "platform-events"),
			S3BucketName:      getEnv("S3_RECORDINGS_BUCKET", "stream-recordings"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
