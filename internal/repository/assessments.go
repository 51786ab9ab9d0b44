package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"mindguard-analyzer/internal/models"

	"go.uber.org/zap"
)

// ErrAssessmentNotFound 评估记录不存在
var ErrAssessmentNotFound = errors.New("assessment not found")

const maxHistoryLimit = 500

const schema = `
	CREATE TABLE IF NOT EXISTS risk_assessments (
		assessment_id UUID PRIMARY KEY,
		user_id       TEXT NOT NULL,
		score         DOUBLE PRECISION NOT NULL,
		tier          TEXT NOT NULL,
		assessment    JSONB NOT NULL,
		details       JSONB NOT NULL DEFAULT '{}',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_risk_assessments_user_created
		ON risk_assessments (user_id, created_at DESC);
`

// AssessmentRepository 综合评估记录仓库
type AssessmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssessmentRepository 创建评估记录仓库
func NewAssessmentRepository(db *sql.DB, logger *zap.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema 创建表和索引（已存在时跳过）
func (r *AssessmentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateAssessment 写入评估记录
func (r *AssessmentRepository) CreateAssessment(ctx context.Context, record *models.AssessmentRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	assessment, err := json.Marshal(record.Assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}
	details := record.Details
	if details == "" {
		details = "{}"
	}

	query := `
		INSERT INTO risk_assessments (
			assessment_id,
			user_id,
			score,
			tier,
			assessment,
			details,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.AssessmentID,
		record.UserID,
		record.Score,
		string(record.Tier),
		assessment,
		[]byte(details),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	r.logger.Debug("Created assessment",
		zap.String("assessment_id", record.AssessmentID),
		zap.String("user_id", record.UserID),
		zap.Float64("score", record.Score),
	)
	return nil
}

// GetLatestAssessment 用户最近一次评估
func (r *AssessmentRepository) GetLatestAssessment(ctx context.Context, userID string) (*models.AssessmentRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT
			assessment_id,
			user_id,
			score,
			tier,
			assessment,
			details,
			created_at
		FROM risk_assessments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	record, err := scanAssessment(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user_id=%s", ErrAssessmentNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get latest assessment: %w", err)
	}
	return record, nil
}

// ListAssessments 用户评估历史（按时间倒序）
func (r *AssessmentRepository) ListAssessments(ctx context.Context, userID string, limit int) ([]models.AssessmentRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `
		SELECT
			assessment_id,
			user_id,
			score,
			tier,
			assessment,
			details,
			created_at
		FROM risk_assessments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	records := make([]models.AssessmentRecord, 0)
	for rows.Next() {
		record, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assessments: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row rowScanner) (*models.AssessmentRecord, error) {
	var record models.AssessmentRecord
	var tier string
	var assessment, details []byte

	err := row.Scan(
		&record.AssessmentID,
		&record.UserID,
		&record.Score,
		&tier,
		&assessment,
		&details,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Tier = models.RiskLevel(tier)
	if len(assessment) > 0 {
		if err := json.Unmarshal(assessment, &record.Assessment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assessment: %w", err)
		}
	}
	if len(details) > 0 {
		record.Details = string(details)
	} else {
		record.Details = "{}"
	}
	return &record, nil
}
