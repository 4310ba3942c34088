package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"resume-parser/internal/config"
	"resume-parser/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadOriginal 归档原始 PDF，返回对象键
	UploadOriginal(ctx context.Context, recordID, fileExt string, data []byte) (string, error)

	// UploadParsedJSON 归档解析结果 JSON
	UploadParsedJSON(ctx context.Context, recordID string, data []byte) (string, error)

	// DownloadObject 下载对象全部内容
	DownloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error)

	// DownloadPrefix 把某个前缀下的所有对象下载到本地目录，返回文件数
	DownloadPrefix(ctx context.Context, bucketName, prefix, destDir string) (int, error)
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client         *minio.Client
	cfg            *config.MinIOConfig
	originalBucket string
	parsedBucket   string
}

// NewMinIO 创建MinIO客户端，并确保两个存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	logger.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("originals_bucket", cfg.OriginalsBucket).
		Str("parsed_bucket", cfg.ParsedBucket).
		Msg("初始化MinIO客户端")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client:         client,
		cfg:            cfg,
		originalBucket: defaultString(cfg.OriginalsBucket, "resume-originals"),
		parsedBucket:   defaultString(cfg.ParsedBucket, "resume-parsed"),
	}

	ctx := context.Background()
	for _, bucket := range []string{m.originalBucket, m.parsedBucket} {
		if err := m.ensureBucketExists(ctx, bucket, cfg.Location); err != nil {
			return nil, err
		}
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedFileExpireDays > 0 {
		if err := m.setupLifecycleRules(ctx); err != nil {
			logger.Warn().Err(err).Msg("设置MinIO生命周期规则失败")
		}
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Msg("MinIO客户端初始化成功")
	return m, nil
}

// OriginalsBucket 原始文件存储桶名称
func (m *MinIO) OriginalsBucket() string {
	return m.originalBucket
}

// ParsedBucket 解析结果存储桶名称
func (m *MinIO) ParsedBucket() string {
	return m.parsedBucket
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	logger.Info().Str("bucket", bucketName).Msg("已创建存储桶")
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("为原始文件存储桶 %s 设置生命周期失败: %w", m.originalBucket, err)
		}
	}
	if m.cfg.ParsedFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.parsedBucket, "expire-parsed", m.cfg.ParsedFileExpireDays); err != nil {
			return fmt.Errorf("为解析结果存储桶 %s 设置生命周期失败: %w", m.parsedBucket, err)
		}
	}
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// UploadOriginal 对象键形如 resume/<recordID>/original.pdf
func (m *MinIO) UploadOriginal(ctx context.Context, recordID, fileExt string, data []byte) (string, error) {
	objectKey := OriginalObjectKey(recordID, fileExt)
	if err := m.put(ctx, m.originalBucket, objectKey, data, getContentType(fileExt)); err != nil {
		return "", err
	}
	return objectKey, nil
}

// UploadParsedJSON 对象键形如 resume/<recordID>/parsed.json
func (m *MinIO) UploadParsedJSON(ctx context.Context, recordID string, data []byte) (string, error) {
	objectKey := ParsedObjectKey(recordID)
	if err := m.put(ctx, m.parsedBucket, objectKey, data, "application/json"); err != nil {
		return "", err
	}
	return objectKey, nil
}

func (m *MinIO) put(ctx context.Context, bucketName, objectKey string, data []byte, contentType string) error {
	info, err := m.client.PutObject(ctx, bucketName, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("上传对象 %s/%s 失败: %w", bucketName, objectKey, err)
	}
	logger.Debug().Str("bucket", bucketName).Str("object", objectKey).Int64("size", info.Size).Msg("对象上传完成")
	return nil
}

// DownloadObject 下载对象
func (m *MinIO) DownloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error) {
	if bucketName == "" {
		bucketName = m.originalBucket
	}

	obj, err := m.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectKey, err)
	}
	defer obj.Close()

	// Stat 能提前暴露对象不存在或无权限的错误
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", bucketName, objectKey, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, objectKey, err)
	}
	return data, nil
}

// DownloadPrefix 下载前缀下全部对象，保留相对路径
// 用于首次启动时拉取 NER 模型文件
func (m *MinIO) DownloadPrefix(ctx context.Context, bucketName, prefix, destDir string) (int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("创建目录 %s 失败: %w", destDir, err)
	}

	count := 0
	for object := range m.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return count, fmt.Errorf("列出 %s/%s 失败: %w", bucketName, prefix, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(object.Key, prefix), "/")
		if rel == "" {
			rel = path.Base(object.Key)
		}
		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := m.client.FGetObject(ctx, bucketName, object.Key, target, minio.GetObjectOptions{}); err != nil {
			return count, fmt.Errorf("下载 %s/%s 失败: %w", bucketName, object.Key, err)
		}
		count++
	}

	logger.Info().Str("bucket", bucketName).Str("prefix", prefix).Int("files", count).Str("dest", destDir).Msg("前缀下载完成")
	return count, nil
}

// OriginalObjectKey 原始文件的对象键
func OriginalObjectKey(recordID, fileExt string) string {
	if fileExt == "" {
		fileExt = ".pdf"
	}
	return fmt.Sprintf("resume/%s/original%s", recordID, strings.ToLower(fileExt))
}

// ParsedObjectKey 解析结果的对象键
func ParsedObjectKey(recordID string) string {
	return fmt.Sprintf("resume/%s/parsed.json", recordID)
}

// 获取内容类型
func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
