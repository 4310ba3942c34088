package models

import (
	"time"

	"gorm.io/datatypes"
)

// 解析记录状态
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// ParseRecord 一次解析请求的落库记录
type ParseRecord struct {
	RecordID          string         `gorm:"type:char(36);primaryKey" json:"record_id"`
	SourceFilename    string         `gorm:"type:varchar(255)" json:"source_filename"`
	TextMD5           string         `gorm:"type:char(32);index:idx_pr_text_md5" json:"text_md5"`
	Status            string         `gorm:"type:varchar(20);index:idx_pr_status" json:"status"`
	ParserVersion     string         `gorm:"type:varchar(50)" json:"parser_version"`
	OriginalObjectKey string         `gorm:"type:varchar(1024)" json:"original_object_key,omitempty"`
	ParsedObjectKey   string         `gorm:"type:varchar(1024)" json:"parsed_object_key,omitempty"`
	Document          datatypes.JSON `gorm:"type:json" json:"document,omitempty"`
	ErrorMessage      string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (ParseRecord) TableName() string {
	return "parse_records"
}
