package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-parser/internal/config"
	applog "resume-parser/internal/logger"
	"resume-parser/internal/storage/models"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("resume-parser/storage/mysql")

// ErrRecordNotFound 解析记录不存在
var ErrRecordNotFound = errors.New("解析记录不存在")

type spanContextKey struct{}

// GormTracingPlugin 为每条 SQL 创建一个 OpenTelemetry span
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{tracer: mysqlTracer, dbName: dbName}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("INSERT")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, spanContextKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(spanContextKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查不到记录属于正常业务分支
			span.SetStatus(codes.Ok, "record not found")
		default:
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// RecordStore 解析记录存取接口
type RecordStore interface {
	CreateParseRecord(ctx context.Context, record *models.ParseRecord) error
	CreateParseRecordWithOutbox(ctx context.Context, record *models.ParseRecord, msg *models.OutboxMessage) error
	GetParseRecord(ctx context.Context, recordID string) (*models.ParseRecord, error)
}

// 确保MySQL实现了RecordStore接口
var _ RecordStore = (*MySQL)(nil)

// MySQL 解析记录的持久化
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 连接 MySQL 并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	return newMySQL(mysql.Open(dsn), cfg, true)
}

// newMySQL 测试中传入 sqlmock 连接，并跳过迁移
func newMySQL(dialector gorm.Dialector, cfg *config.MySQLConfig, autoMigrate bool) (*MySQL, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if autoMigrate {
		if err := db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)}).AutoMigrate(&models.ParseRecord{}, &models.OutboxMessage{}); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
		}
		applog.Info().Str("database", cfg.Database).Msg("成功连接到MySQL并自动迁移数据库结构")
	}
	return m, nil
}

func gormLogLevel(level int) logger.LogLevel {
	switch level {
	case 1:
		return logger.Silent
	case 2:
		return logger.Error
	case 3:
		return logger.Warn
	case 4:
		return logger.Info
	default:
		return logger.Warn
	}
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// NewRecordID 生成按时间有序的记录ID (UUIDv7)
func NewRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成记录ID失败: %w", err)
	}
	return id.String(), nil
}

func ensureRecordID(record *models.ParseRecord) error {
	if record.RecordID != "" {
		return nil
	}
	id, err := NewRecordID()
	if err != nil {
		return err
	}
	record.RecordID = id
	return nil
}

// CreateParseRecord 写入解析记录，RecordID 为空时自动生成
func (m *MySQL) CreateParseRecord(ctx context.Context, record *models.ParseRecord) error {
	if err := ensureRecordID(record); err != nil {
		return err
	}

	if err := m.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("写入解析记录 %s 失败: %w", record.RecordID, err)
	}
	return nil
}

// CreateParseRecordWithOutbox 在同一事务中写入解析记录和待发布事件
// 事件的 AggregateID 固定为记录ID
func (m *MySQL) CreateParseRecordWithOutbox(ctx context.Context, record *models.ParseRecord, msg *models.OutboxMessage) error {
	if err := ensureRecordID(record); err != nil {
		return err
	}
	msg.AggregateID = record.RecordID
	if msg.Status == "" {
		msg.Status = models.OutboxStatusPending
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return fmt.Errorf("写入解析记录 %s 及事件失败: %w", record.RecordID, err)
	}
	return nil
}

// GetParseRecord 按ID查询解析记录
func (m *MySQL) GetParseRecord(ctx context.Context, recordID string) (*models.ParseRecord, error) {
	var record models.ParseRecord
	err := m.db.WithContext(ctx).Where("record_id = ?", recordID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("查询解析记录 %s 失败: %w", recordID, err)
	}
	return &record, nil
}
