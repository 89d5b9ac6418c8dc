package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LinkColumn 是输入表格中 URL 所在列的表头（大小写不敏感）。
const LinkColumn = "link"

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrNoLinkColumn 表示表头中找不到 link 列。
var ErrNoLinkColumn = errors.New("表头中缺少 link 列")

// FormatOf 按扩展名判断表格格式。
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("不支持的表格格式：%q（仅支持 .csv/.xlsx）", path)
	}
}

// ReadLinks 读取输入表格中的 link 列。
//
// 规则：
// - 第一行是表头；link 列名大小写不敏感
// - 空白单元格跳过（不占 limit 配额）
// - limit<=0 表示全部
func ReadLinks(path string, limit int) ([]string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = readCSVRows(path)
	case FormatXLSX:
		rows, err = readXLSXRows(path)
	}
	if err != nil {
		return nil, err
	}
	return linksFromRows(rows, limit)
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// readXLSXRows 读取第一个工作表。
func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("工作簿中没有工作表：%q", path)
	}
	return f.GetRows(sheets[0])
}

func linksFromRows(rows [][]string, limit int) ([]string, error) {
	if len(rows) == 0 {
		return nil, ErrNoLinkColumn
	}
	col := -1
	for i, h := range rows[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), LinkColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrNoLinkColumn
	}

	links := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if limit > 0 && len(links) >= limit {
			break
		}
		if col >= len(row) {
			continue
		}
		if u := strings.TrimSpace(row[col]); u != "" {
			links = append(links, u)
		}
	}
	return links, nil
}
