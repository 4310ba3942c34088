package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-parser/internal/config"
	"resume-parser/internal/constants"
	"resume-parser/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound 缓存未命中
var ErrNotFound = redis.Nil

var redisTracer = otel.Tracer("resume-parser/storage/redis")

// Redis 解析结果缓存
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建 Redis 连接并挂载 OpenTelemetry 钩子
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// CacheTTL 解析结果缓存时长，默认 7 天
func (r *Redis) CacheTTL() time.Duration {
	hours := r.config.CacheTTLHours
	if hours <= 0 {
		hours = 168
	}
	return time.Duration(hours) * time.Hour
}

// CachedParse 缓存中的一次解析结果
type CachedParse struct {
	RecordID string                `json:"record_id,omitempty"`
	Document *types.ResumeDocument `json:"document"`
}

// ParsedDocumentKey 缓存键包含解析器版本，升级后旧结果自然失效
func ParsedDocumentKey(textMD5, parserVersion string) string {
	return fmt.Sprintf(constants.KeyParsedDocument, textMD5, parserVersion)
}

// GetCachedParse 按文本MD5读取缓存，未命中返回 ErrNotFound
func (r *Redis) GetCachedParse(ctx context.Context, textMD5, parserVersion string) (*CachedParse, error) {
	key := ParsedDocumentKey(textMD5, parserVersion)
	ctx, span := r.startSpan(ctx, "Redis.GetCachedParse", "GET", key)
	defer span.End()

	raw, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("读取解析缓存失败: %w", err)
	}

	var cached CachedParse
	if err := json.Unmarshal(raw, &cached); err != nil {
		// 损坏的缓存当作未命中，顺手删掉
		r.Client.Del(ctx, key)
		span.RecordError(err)
		return nil, ErrNotFound
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	span.SetStatus(codes.Ok, "")
	return &cached, nil
}

// SetCachedParse 写入解析缓存，同时记录 MD5 到记录ID 的映射
func (r *Redis) SetCachedParse(ctx context.Context, textMD5, parserVersion string, cached *CachedParse) error {
	key := ParsedDocumentKey(textMD5, parserVersion)
	ctx, span := r.startSpan(ctx, "Redis.SetCachedParse", "SET", key)
	defer span.End()

	raw, err := json.Marshal(cached)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("序列化解析缓存失败: %w", err)
	}

	ttl := r.CacheTTL()
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, key, raw, ttl)
	if cached.RecordID != "" {
		pipe.Set(ctx, fmt.Sprintf(constants.KeyParsedRecordID, textMD5), cached.RecordID, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("写入解析缓存失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetRecordID 返回某段文本最近一次解析的记录ID
func (r *Redis) GetRecordID(ctx context.Context, textMD5 string) (string, error) {
	id, err := r.Client.Get(ctx, fmt.Sprintf(constants.KeyParsedRecordID, textMD5)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return id, err
}

func (r *Redis) startSpan(ctx context.Context, name, op, key string) (context.Context, trace.Span) {
	ctx, span := redisTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.redis.database", fmt.Sprintf("%d", r.config.DB)),
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", op),
		attribute.String("db.redis.key", key),
	)
	return ctx, span
}
