package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/docquiz/internal/quiz"
)

// QuizLoader fetches quizzes from the system of record.
type QuizLoader interface {
	GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error)
}

// QuizCache is a read-through cache of assembled quizzes. Quizzes are
// immutable, so entries never need invalidation; they only expire.
//
//	SET docquiz:quiz:{quizID} {quiz JSON} EX ttl+jitter
//
// Concurrent misses for the same quiz collapse into one loader call.
type QuizCache struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
}

// NewQuizCache creates a cache in front of loader. A ttl <= 0 stores
// entries without expiry.
func NewQuizCache(client *redis.Client, loader QuizLoader, ttl time.Duration, logger *zap.Logger) *QuizCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizCache{client: client, loader: loader, ttl: ttl, logger: logger}
}

// GetQuiz returns the quiz from Redis or, on a miss, from the loader. Redis
// failures degrade to loader reads.
func (c *QuizCache) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	if q, ok := c.cached(ctx, id); ok {
		return q, nil
	}

	// The flight outlives any single caller, so it runs detached from the
	// first caller's cancellation; each caller still stops waiting on its own.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(id, func() (any, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := c.cached(flightCtx, id); ok {
			return q, nil
		}

		q, err := c.loader.GetQuiz(flightCtx, id)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("marshal quiz %s: %w", id, err)
		}
		if err := c.client.Set(flightCtx, quizKey(id), data, c.ttlWithJitter()).Err(); err != nil {
			c.logger.Warn("cache quiz", zap.String("quiz_id", id), zap.Error(err))
		}
		return q, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Callers may modify what they get; hand each one its own copy.
		return cloneQuiz(res.Val.(*quiz.Quiz)), nil
	}
}

func cloneQuiz(src *quiz.Quiz) *quiz.Quiz {
	q := *src
	q.Questions = make([]quiz.Question, len(src.Questions))
	for i, question := range src.Questions {
		question.Options = append([]string(nil), question.Options...)
		q.Questions[i] = question
	}
	return &q
}

func (c *QuizCache) cached(ctx context.Context, id string) (*quiz.Quiz, bool) {
	data, err := c.client.Get(ctx, quizKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("read cached quiz", zap.String("quiz_id", id), zap.Error(err))
		}
		return nil, false
	}

	var q quiz.Quiz
	if err := json.Unmarshal(data, &q); err != nil {
		c.logger.Warn("decode cached quiz", zap.String("quiz_id", id), zap.Error(err))
		return nil, false
	}
	return &q, true
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int64N(jitterMax+1))
}

func quizKey(id string) string {
	return "docquiz:quiz:" + id
}
