package processor

import "resume-parser/internal/storage"

// BatchOption 批处理选项
type BatchOption func(*BatchDriver)

// ServiceOption 单文档服务选项，存储组件都是可选的
type ServiceOption func(*ResumeService)

// ----- 批处理选项 -----

// WithWorkers 并行处理的文件数，<=1 时串行
func WithWorkers(n int) BatchOption {
	return func(d *BatchDriver) {
		if n < 1 {
			n = 1
		}
		d.workers = n
	}
}

// WithSchemaValidation 写文件前按内置 JSON Schema 校验
func WithSchemaValidation(enabled bool) BatchOption {
	return func(d *BatchDriver) {
		if enabled {
			d.schema = DefaultSchemaValidator()
		} else {
			d.schema = nil
		}
	}
}

// WithReportPath 批处理结束后写出 XLSX 汇总
func WithReportPath(path string) BatchOption {
	return func(d *BatchDriver) {
		d.reportPath = path
	}
}

// WithSink 成功文件的归档目标
func WithSink(sink ResultSink) BatchOption {
	return func(d *BatchDriver) {
		d.sink = sink
	}
}

// ----- 服务选项 -----

// WithObjectStore 设置对象存储
func WithObjectStore(store ObjectStore) ServiceOption {
	return func(s *ResumeService) {
		s.objects = store
	}
}

// WithRecordStore 设置解析记录存储
func WithRecordStore(store RecordStore) ServiceOption {
	return func(s *ResumeService) {
		s.records = store
	}
}

// WithParseCache 设置解析缓存
func WithParseCache(cache ParseCache) ServiceOption {
	return func(s *ResumeService) {
		s.cache = cache
	}
}

// WithServiceParserVersion 缓存键里的解析器版本
func WithServiceParserVersion(version string) ServiceOption {
	return func(s *ResumeService) {
		if version != "" {
			s.version = version
		}
	}
}

// WithParsedEventOutbox 成功的解析记录落库时一并写入发件箱事件，由中继投递
// 记录存储不支持发件箱时忽略
func WithParsedEventOutbox(exchange, routingKey string) ServiceOption {
	return func(s *ResumeService) {
		s.outboxExchange = exchange
		s.outboxRoutingKey = routingKey
	}
}

// StorageOptions 把已初始化的存储组件转换为服务选项
// 未初始化的组件（nil 指针）不会被设置，避免接口中持有 nil 指针
func StorageOptions(st *storage.Storage) []ServiceOption {
	if st == nil {
		return nil
	}
	var opts []ServiceOption
	if st.MinIO != nil {
		opts = append(opts, WithObjectStore(st.MinIO))
	}
	if st.MySQL != nil {
		opts = append(opts, WithRecordStore(st.MySQL))
	}
	if st.Redis != nil {
		opts = append(opts, WithParseCache(st.Redis))
	}
	return opts
}
