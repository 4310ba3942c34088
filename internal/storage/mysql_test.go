package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"resume-parser/internal/config"
	"resume-parser/internal/storage/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
)

func newMockMySQL(t *testing.T) (*MySQL, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})
	m, err := newMySQL(dialector, &config.MySQLConfig{Database: "resume_parser", LogLevel: 1}, false)
	require.NoError(t, err)
	return m, mock
}

func TestCreateParseRecordGeneratesID(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `parse_records`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	record := &models.ParseRecord{
		SourceFilename: "jane.pdf",
		TextMD5:        "0123456789abcdef0123456789abcdef",
		Status:         models.StatusSucceeded,
		ParserVersion:  "1.0.0",
		Document:       datatypes.JSON(`{"contact_info":{}}`),
	}
	require.NoError(t, m.CreateParseRecord(context.Background(), record))

	assert.Len(t, record.RecordID, 36, "应自动生成UUID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetParseRecord(t *testing.T) {
	m, mock := newMockMySQL(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"record_id", "source_filename", "text_md5", "status", "parser_version", "document", "created_at", "updated_at"}).
		AddRow("rec-1", "jane.pdf", "md5", models.StatusSucceeded, "1.0.0", []byte(`{"experience":[]}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `parse_records` WHERE record_id = ?")).
		WillReturnRows(rows)

	record, err := m.GetParseRecord(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "jane.pdf", record.SourceFilename)
	assert.JSONEq(t, `{"experience":[]}`, string(record.Document))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetParseRecordNotFound(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `parse_records`")).
		WillReturnRows(sqlmock.NewRows([]string{"record_id"}))

	_, err := m.GetParseRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "resume/abc/original.pdf", OriginalObjectKey("abc", ".PDF"))
	assert.Equal(t, "resume/abc/original.pdf", OriginalObjectKey("abc", ""))
	assert.Equal(t, "resume/abc/parsed.json", ParsedObjectKey("abc"))
	assert.Equal(t, "resume_parser:parse:doc:md5:1.0.0", ParsedDocumentKey("md5", "1.0.0"))
}

func TestCreateParseRecordWithOutbox(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `parse_records`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `outbox_messages`")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	record := &models.ParseRecord{SourceFilename: "jane.pdf", Status: models.StatusSucceeded}
	msg := &models.OutboxMessage{
		EventType:        "resume.parsed",
		Payload:          `{"status":"succeeded"}`,
		TargetExchange:   "resume.events.exchange",
		TargetRoutingKey: "resume.parsed",
	}
	require.NoError(t, m.CreateParseRecordWithOutbox(context.Background(), record, msg))

	assert.Equal(t, record.RecordID, msg.AggregateID)
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Equal(t, uint64(7), msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateParseRecordWithOutboxRollsBack(t *testing.T) {
	m, mock := newMockMySQL(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `parse_records`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `outbox_messages`")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := m.CreateParseRecordWithOutbox(context.Background(),
		&models.ParseRecord{RecordID: "rec-1"},
		&models.OutboxMessage{EventType: "resume.parsed", Payload: "{}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rec-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
