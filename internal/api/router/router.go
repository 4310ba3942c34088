package router

import (
	"context"
	"math"
	"strconv"
	"time"

	"resume-parser/internal/api/handler"
	"resume-parser/internal/config"
	"resume-parser/internal/logger"
	"resume-parser/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
)

// HeaderAPIKey 访问 /api/v1 需要携带的密钥头
const HeaderAPIKey = "X-API-Key"

// NewServer 创建 Hertz 服务器
// 启用追踪时挂载 OpenTelemetry 服务端中间件，所有请求都经过访问日志中间件
func NewServer(cfg config.ServerConfig, tracingEnabled bool) *server.Hertz {
	opts := []hertzconfig.Option{server.WithHostPorts(cfg.Address)}
	if cfg.MaxUploadMB > 0 {
		// multipart 边界等额外开销留 1MB
		opts = append(opts, server.WithMaxRequestBodySize((cfg.MaxUploadMB+1)<<20))
	}

	var tracerCfg *hertztracing.Config
	if tracingEnabled {
		tracer, c := hertztracing.NewServerTracer()
		opts = append(opts, tracer)
		tracerCfg = c
	}

	h := server.Default(opts...)
	if tracerCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	}
	h.Use(AccessLog())
	return h
}

// RegisterRoutes 注册 API 路由
// 配置了 APIKeys 时 /api/v1 下的接口需要 X-API-Key，配置了 RateLimitPerMinute 时全局限流
func RegisterRoutes(h *server.Hertz, parseHandler *handler.ParseHandler, cfg config.ServerConfig) {
	h.GET("/health", parseHandler.Health)

	api := h.Group("/api/v1")
	if len(cfg.APIKeys) > 0 {
		api.Use(APIKeyAuth(cfg.APIKeys))
	}
	if cfg.RateLimitPerMinute > 0 {
		api.Use(RateLimit(ratelimit.NewTokenBucket(cfg.RateLimitPerMinute, cfg.RateLimitBurst)))
	}

	api.POST("/resumes/parse", parseHandler.ParseUpload)
	api.POST("/resumes/parse-text", parseHandler.ParseText)
	api.GET("/resumes/:id", parseHandler.GetRecord)
}

// APIKeyAuth 校验请求头中的 API 密钥
func APIKeyAuth(apiKeys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		allowed[k] = struct{}{}
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+HeaderAPIKey, ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			_, ok := allowed[key]
			return ok, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "缺少或无效的API密钥"})
		}),
	)
}

// RateLimit 令牌不足时返回 429 和 Retry-After（秒）
func RateLimit(bucket *ratelimit.TokenBucket) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if bucket.Allow() {
			c.Next(ctx)
			return
		}
		retryAfter := int(math.Ceil(bucket.RetryAfter().Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{"error": "请求过于频繁，请稍后重试"})
	}
}

// AccessLog 请求日志中间件
func AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		status := c.Response.StatusCode()
		event := logger.Info()
		if status >= consts.StatusInternalServerError {
			event = logger.Error()
		} else if status >= consts.StatusBadRequest {
			event = logger.Warn()
		}
		event.
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP请求")
	}
}
