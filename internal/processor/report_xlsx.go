package processor

import (
	"fmt"
	"os"
	"path/filepath"

	"resume-parser/internal/types"

	"github.com/xuri/excelize/v2"
)

const (
	reportResultSheet  = "解析结果"
	reportSummarySheet = "汇总"
)

var reportHeaders = []string{"文件", "状态", "错误", "邮箱", "电话", "教育条目", "工作经历条目", "输出文件", "耗时(ms)"}

// WriteBatchReport 把批处理结果写成 XLSX，每个文件一行，另有一张汇总表
func WriteBatchReport(path string, stats *BatchStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportResultSheet); err != nil {
		return fmt.Errorf("重命名工作表失败: %w", err)
	}

	for col, header := range reportHeaders {
		if err := setCell(f, reportResultSheet, col+1, 1, header); err != nil {
			return err
		}
	}

	for i, r := range stats.Results {
		row := i + 2
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		var email, phone string
		var eduCount, expCount int
		if r.Document != nil {
			email = types.Deref(r.Document.ContactInfo.Email)
			phone = types.Deref(r.Document.ContactInfo.Phone)
			eduCount = len(r.Document.Education)
			expCount = len(r.Document.Experience)
		}

		values := []interface{}{r.File, r.Status, errText, email, phone, eduCount, expCount, r.OutputPath, r.Duration.Milliseconds()}
		for col, v := range values {
			if err := setCell(f, reportResultSheet, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.NewSheet(reportSummarySheet); err != nil {
		return fmt.Errorf("创建汇总表失败: %w", err)
	}
	summary := [][2]interface{}{
		{"发现文件", stats.Discovered},
		{"成功", stats.Succeeded},
		{"失败", stats.Failed},
	}
	for i, kv := range summary {
		if err := setCell(f, reportSummarySheet, 1, i+1, kv[0]); err != nil {
			return err
		}
		if err := setCell(f, reportSummarySheet, 2, i+1, kv[1]); err != nil {
			return err
		}
	}

	idx, err := f.GetSheetIndex(reportResultSheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建报告目录失败: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报告 %s 失败: %w", path, err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
