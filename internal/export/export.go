// Package export 将周预览导出为 Excel
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/paiban/shiftassign/pkg/assign"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// ContentType xlsx 的 MIME 类型
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// 工作表名称
const (
	SheetSuggestions = "推荐"
	SheetUnfilled    = "未排班次"
	SheetFairness    = "公平性"
)

// ErrGenerate 生成文件失败
var ErrGenerate = errors.New("生成 Excel 失败")

// Preview 将预览写入工作簿，返回文件内容和文件名
func Preview(preview *assign.Preview) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerate, err)
	}

	sheets := []struct {
		name   string
		header []interface{}
		widths []float64
		rows   [][]interface{}
	}{
		{SheetSuggestions, []interface{}{"班次ID", "推荐员工", "推荐员工ID", "得分", "候选人数", "备注"}, []float64{38, 14, 38, 10, 10, 30}, suggestionRows(preview)},
		{SheetUnfilled, []interface{}{"班次ID", "原因"}, []float64{38, 60}, unfilledRows(preview)},
		{SheetFairness, []interface{}{"员工ID", "员工", "推荐班次数", "推荐工时"}, []float64{38, 14, 12, 12}, fairnessRows(preview)},
	}

	for i, sheet := range sheets {
		idx, err := f.NewSheet(sheet.name)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrGenerate, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		for col, width := range sheet.widths {
			name, _ := excelize.ColumnNumberToName(col + 1)
			f.SetColWidth(sheet.name, name, name, width)
		}

		if err := f.SetSheetRow(sheet.name, "A1", &sheet.header); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrGenerate, err)
		}
		last, _ := excelize.CoordinatesToCellName(len(sheet.header), 1)
		f.SetCellStyle(sheet.name, "A1", last, headerStyle)

		for r, row := range sheet.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return nil, "", fmt.Errorf("%w: %v", ErrGenerate, err)
			}
		}
	}
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	return buf, fmt.Sprintf("排班预览_%s.xlsx", preview.WeekStart), nil
}

func suggestionRows(preview *assign.Preview) [][]interface{} {
	rows := make([][]interface{}, 0, len(preview.ShiftSuggestions))
	for _, s := range preview.ShiftSuggestions {
		name, id, score := "-", "-", interface{}("-")
		if s.RecommendedEmployeeID != nil {
			id = s.RecommendedEmployeeID.String()
			for _, c := range s.Candidates {
				if c.EmployeeID == *s.RecommendedEmployeeID {
					name = c.EmployeeName
					break
				}
			}
		}
		if s.RecommendedScore != nil {
			score = *s.RecommendedScore
		}
		notes := make([]string, len(s.Notes))
		for i, n := range s.Notes {
			notes[i] = string(n)
		}
		rows = append(rows, []interface{}{s.ShiftID.String(), name, id, score, len(s.Candidates), strings.Join(notes, ",")})
	}
	return rows
}

func unfilledRows(preview *assign.Preview) [][]interface{} {
	rows := make([][]interface{}, 0, len(preview.UnfilledShifts))
	for _, u := range preview.UnfilledShifts {
		rows = append(rows, []interface{}{u.ShiftID.String(), strings.Join(constraint.ToStrings(u.Reasons), ",")})
	}
	return rows
}

func fairnessRows(preview *assign.Preview) [][]interface{} {
	rows := make([][]interface{}, 0, len(preview.FairnessSummary))
	for _, load := range preview.FairnessSummary {
		rows = append(rows, []interface{}{load.EmployeeID.String(), load.EmployeeName, load.RecommendedShiftCount, load.RecommendedHours})
	}
	return rows
}
