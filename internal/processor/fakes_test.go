package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"resume-parser/internal/ner"
	"resume-parser/internal/parser"
	"resume-parser/internal/storage"
	"resume-parser/internal/storage/models"
	"resume-parser/internal/types"
)

const sampleResumeText = `Jane Doe
jane.doe@example.com
(555) 123-4567

EDUCATION
Bachelor of Science in Computer Science
State University

EXPERIENCE
Software Engineer
Jan 2021 - Present
Built the billing pipeline`

// fakeExtractor 按文件名返回预置文本
type fakeExtractor struct {
	mu    sync.Mutex
	texts map[string]string
	errs  map[string]error
	calls []string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{texts: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeExtractor) lookup(name string) (string, map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return "", nil, err
	}
	text, ok := f.texts[name]
	if !ok {
		return "", nil, fmt.Errorf("没有为 %s 准备文本", name)
	}
	return text, map[string]interface{}{"backend": "fake"}, nil
}

func (f *fakeExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	return f.lookup(filepath.Base(filePath))
}

func (f *fakeExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	return f.lookup(uri)
}

// newTestBuilder 使用真实构建器，NER 返回空结果，时间固定
func newTestBuilder() *parser.ResumeDocumentBuilder {
	recognizer := ner.RecognizerFunc(func(text string) ([]ner.Entity, error) {
		return nil, nil
	})
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return parser.NewResumeDocumentBuilder(recognizer, parser.WithClock(func() time.Time { return fixed }))
}

// failingBuilder 总是返回错误
type failingBuilder struct {
	err error
}

func (b failingBuilder) Build(text, sourceFilename string) (*types.ResumeDocument, error) {
	return nil, b.err
}

// fakeObjectStore 内存对象存储
type fakeObjectStore struct {
	mu          sync.Mutex
	objects     map[string][]byte // bucket/key -> data
	uploadErr   error
	downloadErr error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
}

func (s *fakeObjectStore) UploadOriginal(ctx context.Context, recordID, fileExt string, data []byte) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	key := storage.OriginalObjectKey(recordID, fileExt)
	s.put("originals", key, data)
	return key, nil
}

func (s *fakeObjectStore) UploadParsedJSON(ctx context.Context, recordID string, data []byte) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	key := storage.ParsedObjectKey(recordID)
	s.put("parsed", key, data)
	return key, nil
}

func (s *fakeObjectStore) DownloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucketName+"/"+objectKey]
	if !ok {
		return nil, fmt.Errorf("对象不存在: %s/%s", bucketName, objectKey)
	}
	return data, nil
}

func (s *fakeObjectStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// fakeRecordStore 内存解析记录
type fakeRecordStore struct {
	mu        sync.Mutex
	records   []*models.ParseRecord
	createErr error
}

func (s *fakeRecordStore) CreateParseRecord(ctx context.Context, record *models.ParseRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.RecordID == "" {
		record.RecordID = fmt.Sprintf("generated-%d", len(s.records)+1)
	}
	s.records = append(s.records, record)
	return nil
}

func (s *fakeRecordStore) GetParseRecord(ctx context.Context, recordID string) (*models.ParseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.RecordID == recordID {
			return r, nil
		}
	}
	return nil, storage.ErrRecordNotFound
}

func (s *fakeRecordStore) all() []*models.ParseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ParseRecord, len(s.records))
	copy(out, s.records)
	return out
}

// fakeOutboxRecordStore 额外记录同事务写入的发件箱消息
type fakeOutboxRecordStore struct {
	fakeRecordStore
	outbox []*models.OutboxMessage
}

func (s *fakeOutboxRecordStore) CreateParseRecordWithOutbox(ctx context.Context, record *models.ParseRecord, msg *models.OutboxMessage) error {
	if err := s.CreateParseRecord(ctx, record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.AggregateID = record.RecordID
	s.outbox = append(s.outbox, msg)
	return nil
}

// fakeCache 内存解析缓存
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*storage.CachedParse
	getErr  error
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*storage.CachedParse{}}
}

func (c *fakeCache) GetCachedParse(ctx context.Context, textMD5, parserVersion string) (*storage.CachedParse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	cached, ok := c.entries[textMD5+":"+parserVersion]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cached, nil
}

func (c *fakeCache) SetCachedParse(ctx context.Context, textMD5, parserVersion string, cached *storage.CachedParse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[textMD5+":"+parserVersion] = cached
	return nil
}

// publishedMessage 一条已发布的消息
type publishedMessage struct {
	Exchange   string
	RoutingKey string
	Data       interface{}
}

// fakeBroker 记录声明和发布，StartConsumer 把 deliveries 中的消息依次交给 handler
type fakeBroker struct {
	mu           sync.Mutex
	exchanges    []string
	queues       []string
	bindings     []string
	published    []publishedMessage
	publishErr   error
	deliveries   [][]byte
	dispositions []storage.Disposition
}

func (b *fakeBroker) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exchanges = append(b.exchanges, exchangeName+":"+exchangeType)
	return nil
}

func (b *fakeBroker) EnsureQueue(queueName string, durable bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = append(b.queues, queueName)
	return nil
}

func (b *fakeBroker) BindQueue(queueName, exchangeName, routingKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings = append(b.bindings, exchangeName+":"+queueName+":"+routingKey)
	return nil
}

func (b *fakeBroker) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMessage{Exchange: exchangeName, RoutingKey: routingKey, Data: data})
	return nil
}

func (b *fakeBroker) StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func(context.Context, []byte) storage.Disposition) (<-chan struct{}, error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, body := range b.deliveries {
			d := handler(ctx, body)
			b.mu.Lock()
			b.dispositions = append(b.dispositions, d)
			b.mu.Unlock()
		}
		<-ctx.Done()
	}()
	return done, nil
}

// fakeSink 记录批处理归档请求
type fakeSink struct {
	mu    sync.Mutex
	items []ArchiveItem
	err   error
}

func (s *fakeSink) Archive(ctx context.Context, item ArchiveItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("rec-%d", len(s.items)), nil
}

var errBoom = errors.New("boom")
