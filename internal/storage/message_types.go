package storage

// ResumeParseRequest 解析请求消息，原始 PDF 已上传到对象存储
type ResumeParseRequest struct {
	RequestID      string `json:"request_id" validate:"required"`
	Bucket         string `json:"bucket,omitempty"` // 为空时使用原始文件存储桶
	ObjectKey      string `json:"object_key" validate:"required"`
	SourceFilename string `json:"source_filename" validate:"required"`
}

// ResumeParsedEvent 解析完成事件，失败时 Document 为空、Error 非空
type ResumeParsedEvent struct {
	RequestID string      `json:"request_id"`
	RecordID  string      `json:"record_id,omitempty"`
	Status    string      `json:"status"`
	Error     string      `json:"error,omitempty"`
	Document  interface{} `json:"document"`
}
