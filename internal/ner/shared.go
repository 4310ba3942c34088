package ner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"resume-parser/internal/config"
	"resume-parser/internal/logger"
)

// ModelFetcher 从对象存储下载某个前缀下的全部模型文件到本地目录
// storage.MinIO 实现了该接口
type ModelFetcher interface {
	DownloadPrefix(ctx context.Context, bucket, prefix, destDir string) (int, error)
}

// Loader 根据模型目录创建识别器
type Loader func(modelDir string) (Recognizer, error)

// ProseLoader 默认加载器
func ProseLoader(modelDir string) (Recognizer, error) {
	return NewProseRecognizer(modelDir)
}

type sharedSettings struct {
	fetcher ModelFetcher
	loader  Loader
}

// SharedOption 共享识别器的可选项
type SharedOption func(*sharedSettings)

// WithModelFetcher 本地模型缺失时用于下载的来源
func WithModelFetcher(f ModelFetcher) SharedOption {
	return func(s *sharedSettings) {
		s.fetcher = f
	}
}

// WithLoader 替换模型加载器（测试用）
func WithLoader(l Loader) SharedOption {
	return func(s *sharedSettings) {
		s.loader = l
	}
}

var (
	sharedInstance *LockedRecognizer
	sharedErr      error
	sharedOnce     sync.Once
	sharedMutex    sync.Mutex
)

// Shared 获取进程级共享识别器
// 首次调用时加载模型，之后直接返回同一实例；加载失败的错误也会被记住
func Shared(ctx context.Context, cfg *config.NERConfig, opts ...SharedOption) (Recognizer, error) {
	sharedMutex.Lock()
	defer sharedMutex.Unlock()

	sharedOnce.Do(func() {
		settings := &sharedSettings{loader: ProseLoader}
		for _, opt := range opts {
			opt(settings)
		}

		var inner Recognizer
		inner, sharedErr = load(ctx, cfg, settings)
		if sharedErr == nil {
			sharedInstance = NewLockedRecognizer(inner)
		}
	})

	if sharedErr != nil {
		return nil, sharedErr
	}
	return sharedInstance, nil
}

// ResetShared 重置共享识别器（主要用于测试）
func ResetShared() {
	sharedMutex.Lock()
	defer sharedMutex.Unlock()
	sharedInstance = nil
	sharedErr = nil
	sharedOnce = sync.Once{}
}

func load(ctx context.Context, cfg *config.NERConfig, settings *sharedSettings) (Recognizer, error) {
	modelDir := ""
	if cfg != nil {
		modelDir = cfg.ModelDir
	}

	if err := ensureModel(ctx, cfg, settings.fetcher); err != nil {
		return nil, err
	}

	r, err := settings.loader(modelDir)
	if err != nil {
		logger.Error().Err(err).Str("model_dir", modelDir).Msg("NER模型加载失败")
		if errors.Is(err, ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	logger.Info().Str("model_dir", modelDir).Msg("NER模型加载完成")
	return r, nil
}

// ensureModel 本地模型目录缺失时尝试从对象存储下载
func ensureModel(ctx context.Context, cfg *config.NERConfig, fetcher ModelFetcher) error {
	if cfg == nil || cfg.ModelDir == "" {
		return nil
	}
	if _, err := os.Stat(cfg.ModelDir); err == nil {
		return nil
	}

	if fetcher == nil || cfg.ModelBucket == "" {
		return fmt.Errorf("%w: 模型目录 %s 不存在且未配置下载来源", ErrModelUnavailable, cfg.ModelDir)
	}

	logger.Info().
		Str("bucket", cfg.ModelBucket).
		Str("prefix", cfg.ModelPrefix).
		Str("model_dir", cfg.ModelDir).
		Msg("本地NER模型缺失，尝试从对象存储下载")

	n, err := fetcher.DownloadPrefix(ctx, cfg.ModelBucket, cfg.ModelPrefix, cfg.ModelDir)
	if err != nil {
		return fmt.Errorf("%w: 下载模型失败: %v", ErrModelUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: 存储桶 %s 前缀 %q 下没有模型文件", ErrModelUnavailable, cfg.ModelBucket, cfg.ModelPrefix)
	}

	logger.Info().Int("files", n).Msg("NER模型下载完成")
	return nil
}
