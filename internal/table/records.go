package table

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/John-Robertt/moviecrawl/internal/domain"
	"github.com/John-Robertt/moviecrawl/internal/infra/fsx"
)

// ListSeparator 是 genres/actors 在单元格内的分隔符。
const ListSeparator = "|"

const sheetName = "movies"

// WriteRecords 按固定列顺序写出数据集（原子写入，已存在则覆盖）。
// null 字段输出为空单元格；xlsx 中数值列保持数值类型。
func WriteRecords(path string, records []domain.MovieRecord) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatXLSX:
		return writeXLSX(path, records)
	default:
		return writeCSV(path, records)
	}
}

func writeCSV(path string, records []domain.MovieRecord) error {
	return fsx.WriteFunc(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(domain.Columns); err != nil {
			return err
		}
		for _, rec := range records {
			if err := cw.Write(StringRow(rec)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func writeXLSX(path string, records []domain.MovieRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	header := make([]interface{}, len(domain.Columns))
	for i, c := range domain.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := Row(rec)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	return fsx.WriteFunc(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

// Row 把记录展开为与 domain.Columns 对齐的单元格值；null 为 nil。
func Row(r domain.MovieRecord) []interface{} {
	return []interface{}{
		r.Title,
		intPtr(r.Year),
		floatPtr(r.Rating),
		r.AgeRating,
		r.UserReviews,
		r.CriticReviews,
		r.MetascoreReview,
		int64Ptr(r.Votes),
		strings.Join(r.Genres, ListSeparator),
		intPtr(r.DurationMinutes),
		r.Director,
		int64Ptr(r.Budget),
		strings.Join(r.Actors, ListSeparator),
		floatPtr(r.AspectRatio),
	}
}

// StringRow 是 Row 的文本形式（csv 使用）。
func StringRow(r domain.MovieRecord) []string {
	vals := Row(r)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = formatCell(v)
	}
	return out
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func intPtr(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func int64Ptr(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
