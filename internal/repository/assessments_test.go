package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"mindguard-analyzer/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var assessmentColumns = []string{
	"assessment_id", "user_id", "score", "tier", "assessment", "details", "created_at",
}

func setupMockAssessmentDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AssessmentRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewAssessmentRepository(db, zap.NewNop())
	return db, mock, repo
}

// 辅助函数
func testAssessment() models.RiskAssessment {
	return models.RiskAssessment{
		Score:          80,
		Tier:           models.RiskHigh,
		Factors:        []string{"情绪下降64.0%"},
		Recommendation: "高危！立即通知家长，推荐专业咨询",
		Timestamp:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEnsureSchema(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS risk_assessments`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssessment_Success(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	record := &models.AssessmentRecord{
		AssessmentID: uuid.New().String(),
		UserID:       "u1",
		Score:        80,
		Tier:         models.RiskHigh,
		Assessment:   testAssessment(),
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	assessmentJSON, err := json.Marshal(record.Assessment)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO risk_assessments`).
		WithArgs(record.AssessmentID, "u1", 80.0, "high", assessmentJSON, []byte("{}"), record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.CreateAssessment(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssessment_Validation(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	err := repo.CreateAssessment(context.Background(), nil)
	assert.Contains(t, err.Error(), "record is required")

	err = repo.CreateAssessment(context.Background(), &models.AssessmentRecord{})
	assert.Contains(t, err.Error(), "user_id is required")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssessment_DBError(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO risk_assessments`).
		WillReturnError(sql.ErrConnDone)

	err := repo.CreateAssessment(context.Background(), &models.AssessmentRecord{UserID: "u1"})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestAssessment_Success(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	id := uuid.New().String()
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assessmentJSON, err := json.Marshal(testAssessment())
	require.NoError(t, err)

	rows := sqlmock.NewRows(assessmentColumns).
		AddRow(id, "u1", 80.0, "high", assessmentJSON, []byte(`{"music":{}}`), createdAt)
	mock.ExpectQuery(`SELECT`).
		WithArgs("u1").
		WillReturnRows(rows)

	record, err := repo.GetLatestAssessment(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, id, record.AssessmentID)
	assert.Equal(t, models.RiskHigh, record.Tier)
	assert.Equal(t, testAssessment(), record.Assessment)
	assert.Equal(t, `{"music":{}}`, record.Details)
	assert.Equal(t, createdAt, record.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestAssessment_NotFound(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	record, err := repo.GetLatestAssessment(context.Background(), "u1")

	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAssessments(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	assessmentJSON, err := json.Marshal(testAssessment())
	require.NoError(t, err)
	newer := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	older := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(assessmentColumns).
		AddRow("a2", "u1", 80.0, "high", assessmentJSON, nil, newer).
		AddRow("a1", "u1", 20.0, "low", assessmentJSON, []byte(`{}`), older)
	mock.ExpectQuery(`SELECT`).
		WithArgs("u1", 30).
		WillReturnRows(rows)

	records, err := repo.ListAssessments(context.Background(), "u1", 30)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a2", records[0].AssessmentID)
	assert.Equal(t, "{}", records[0].Details)
	assert.Equal(t, models.RiskLow, records[1].Tier)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAssessments_LimitCapped(t *testing.T) {
	db, mock, repo := setupMockAssessmentDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("u1", maxHistoryLimit).
		WillReturnRows(sqlmock.NewRows(assessmentColumns))

	records, err := repo.ListAssessments(context.Background(), "u1", 0)

	require.NoError(t, err)
	assert.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}
