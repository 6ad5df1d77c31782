package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no cached snapshot exists for a scan.
var ErrNotFound = errors.New("progress snapshot not found")

type IRedis interface {
	SetScanProgress(ctx context.Context, scanID string, snapshot string, expiration time.Duration) error
	GetScanProgress(ctx context.Context, scanID string) (string, error)
	DeleteScanProgress(ctx context.Context, scanID string) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func progressKey(scanID string) string {
	return "scan:progress:" + scanID
}

func (r *redisClient) SetScanProgress(ctx context.Context, scanID string, snapshot string, expiration time.Duration) error {
	err := r.client.Set(ctx, progressKey(scanID), snapshot, expiration).Err()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error setting progress for scan %s: %v", scanID, err))
		return err
	}
	return nil
}

func (r *redisClient) GetScanProgress(ctx context.Context, scanID string) (string, error) {
	val, err := r.client.Get(ctx, progressKey(scanID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting progress for scan %s: %v", scanID, err))
		return "", err
	}
	return val, nil
}

func (r *redisClient) DeleteScanProgress(ctx context.Context, scanID string) error {
	_, err := r.client.Del(ctx, progressKey(scanID)).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error deleting progress for scan %s: %v", scanID, err))
		return err
	}
	return nil
}
