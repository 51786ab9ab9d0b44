// Package report 评估历史导出
package report

import (
	"bytes"
	"fmt"
	"strings"

	"mindguard-analyzer/internal/models"
	"mindguard-analyzer/internal/privacy"

	"github.com/xuri/excelize/v2"
)

// SheetName 导出工作表名称
const SheetName = "Risk Assessments"

// AssessmentExportHeader 导出表头
var AssessmentExportHeader = []string{
	"Assessment ID",
	"User",
	"Score",
	"Tier",
	"Emotion",
	"Music",
	"Anomaly",
	"Resonance",
	"Factors",
	"Recommendation",
	"Created At",
}

var columnWidths = []float64{
	38, // Assessment ID
	24, // User
	10, // Score
	10, // Tier
	10, // Emotion
	10, // Music
	10, // Anomaly
	12, // Resonance
	50, // Factors
	36, // Recommendation
	20, // Created At
}

// ExportOptions 导出选项
type ExportOptions struct {
	AnonymizeUser bool // 用户 id 脱敏
}

// GenerateAssessmentExport 生成评估历史 Excel 文件，records 为空时只生成表头
func GenerateAssessmentExport(records []models.AssessmentRecord, opts ExportOptions) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range AssessmentExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, record := range records {
		row := i + 2 // 第 1 行是表头
		user := record.UserID
		if opts.AnonymizeUser {
			user = privacy.AnonymizeUserID(user)
		}
		c := record.Assessment.Components

		values := []interface{}{
			record.AssessmentID,
			user,
			record.Score,
			string(record.Tier),
			optional(c.Emotion),
			optional(c.Music),
			optional(c.Anomaly),
			optional(c.Resonance),
			strings.Join(record.Assessment.Factors, "；"),
			record.Assessment.Recommendation,
			record.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}

// optional 缺失的分数留空
func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
