package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"rover-service/internal/logger"
	"rover-service/internal/types"
)

const (
	roverHash      = "rover"
	commandListKey = "rover:command"
)

// CommandFunc receives one text-protocol token pushed onto the command
// list (same vocabulary as the serial channel).
type CommandFunc func(token string)

// RedisClient mirrors rover state into a Redis hash with pub/sub change
// notifications, and consumes manual-command tokens pushed onto the
// rover:command list. It implements StateStore.
type RedisClient struct {
	client *redis.Client
	logger *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *RedisClient) Connect() error {
	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Connected to Redis at %s", r.client.Options().Addr)
	return nil
}

// StartListening starts the command-list listener. Tokens are forwarded to
// the handler; validation happens in the remote dispatcher.
func (r *RedisClient) StartListening(handler CommandFunc) error {
	if handler == nil {
		return fmt.Errorf("command handler must not be nil")
	}
	r.wg.Add(1)
	go r.commandListener(handler)
	return nil
}

func (r *RedisClient) commandListener(handler CommandFunc) {
	defer r.wg.Done()
	r.logger.Infof("Starting command listener for %s", commandListKey)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting command listener")
			return
		default:
			// BRPOP with a short timeout so context cancellation is
			// observed periodically.
			result, err := r.client.BRPop(r.ctx, 5*time.Second, commandListKey).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if err == context.Canceled {
					return
				}
				r.logger.Warnf("Error reading from %s list: %v", commandListKey, err)
				continue
			}
			if len(result) >= 2 { // BRPOP returns [key, value]
				r.logger.Debugf("Received command token: %s", result[1])
				handler(result[1])
			}
		}
	}
}

// publishHashSet atomically updates a hash field and publishes a change
// notification.
func (r *RedisClient) publishHashSet(field string, value interface{}) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, roverHash, field, value)
	pipe.Publish(r.ctx, roverHash, field)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishDriveState records the drive controller state with a timestamp.
func (r *RedisClient) PublishDriveState(state types.DriveState) error {
	timestamp := time.Now().Format(time.RFC3339)
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, roverHash, "state", string(state))
	pipe.HSet(r.ctx, roverHash, "state:timestamp", timestamp)
	pipe.Publish(r.ctx, roverHash, "state")
	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to publish drive state: %w", err)
	}
	return nil
}

func (r *RedisClient) SetMotorSpeed(side types.Side, speed int) error {
	return r.publishHashSet(fmt.Sprintf("motor:%s:speed", side), speed)
}

func (r *RedisClient) SetMotorDirection(side types.Side, dir types.Direction) error {
	return r.publishHashSet(fmt.Sprintf("motor:%s:direction", side), string(dir))
}

func (r *RedisClient) SetBatteryStatus(voltageMv, percent int) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, roverHash, "battery:voltage", voltageMv)
	pipe.HSet(r.ctx, roverHash, "battery:percent", percent)
	pipe.Publish(r.ctx, roverHash, "battery")
	_, err := pipe.Exec(r.ctx)
	return err
}

func (r *RedisClient) SetMode(manual bool) error {
	mode := "auto"
	if manual {
		mode = "manual"
	}
	return r.publishHashSet("mode", mode)
}

func (r *RedisClient) PublishObjectDetected(bearing int, distanceCm uint16) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, roverHash, "obstacle:bearing", bearing)
	pipe.HSet(r.ctx, roverHash, "obstacle:distance", int(distanceCm))
	pipe.Publish(r.ctx, roverHash, "obstacle")
	_, err := pipe.Exec(r.ctx)
	return err
}

func (r *RedisClient) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.client.Close()
}
