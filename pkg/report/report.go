// Package report пишет XLSX-отчет о запуске миграции: параметры, счетчики
// по стадиям, загруженные базы и таблицы, отказы из DLQ.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/retry"
)

// Имена листов отчета
const (
	SheetSummary   = "Summary"
	SheetDatabases = "Databases"
	SheetTables    = "Tables"
	SheetFailures  = "Failures"
)

// Stage - строка статистики одной сущности
type Stage struct {
	Entity   string
	In       int
	Filtered int
	Out      int
	Units    int
	Created  int
	Skipped  int
	Failed   int
}

// Report - данные отчета о запуске миграции
type Report struct {
	RunID     string
	Mode      string
	Source    string
	Target    string
	Status    string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
	Filter    string

	Stages   []Stage
	Set      *catalog.ImportSet
	Failures []retry.DLQEntry
}

// cellKind - формат ячейки
type cellKind int

const (
	kindText cellKind = iota
	kindInt
	kindTime
)

type column struct {
	header string
	kind   cellKind
	width  float64
}

// Write сохраняет отчет в XLSX
//
// Листы:
//   - Summary: параметры запуска и счетчики по сущностям
//   - Databases, Tables: загруженный ImportSet
//   - Failures: записи DLQ (только если они есть)
func Write(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	w := &sheetWriter{f: f, headerStyle: headerStyle, styles: make(map[cellKind]int)}
	// встроенные числовые форматы Excel: 49 = "@", 1 = "0", 22 = "m/d/yy h:mm"
	for kind, numFmt := range map[cellKind]int{kindText: 49, kindInt: 1, kindTime: 22} {
		id, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		if err != nil {
			return fmt.Errorf("failed to create cell style: %w", err)
		}
		w.styles[kind] = id
	}

	if err := w.summary(r); err != nil {
		return err
	}
	if r.Set != nil {
		if err := w.databases(r.Set); err != nil {
			return err
		}
		if err := w.tables(r.Set); err != nil {
			return err
		}
	}
	if len(r.Failures) > 0 {
		if err := w.failures(r.Failures); err != nil {
			return err
		}
	}

	idx, err := f.GetSheetIndex(SheetSummary)
	if err != nil {
		return fmt.Errorf("failed to find summary sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

type sheetWriter struct {
	f           *excelize.File
	headerStyle int
	styles      map[cellKind]int
}

func (w *sheetWriter) summary(r *Report) error {
	if _, err := w.f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	params := [][2]any{
		{"Run ID", r.RunID},
		{"Mode", r.Mode},
		{"Source", r.Source},
		{"Target", r.Target},
		{"Filter", r.Filter},
		{"Status", r.Status},
		{"Started", r.StartedAt},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
		{"Error", r.Error},
	}
	for i, p := range params {
		row := i + 1
		if err := w.set(SheetSummary, "A", row, p[0], kindText); err != nil {
			return err
		}
		kind := kindText
		if _, ok := p[1].(time.Time); ok {
			kind = kindTime
		}
		if err := w.set(SheetSummary, "B", row, p[1], kind); err != nil {
			return err
		}
	}

	start := len(params) + 2
	columns := []column{
		{"Entity", kindText, 14}, {"In", kindInt, 12}, {"Filtered", kindInt, 12}, {"Out", kindInt, 12},
		{"Units", kindInt, 12}, {"Created", kindInt, 12}, {"Skipped", kindInt, 12}, {"Failed", kindInt, 12},
	}
	rows := make([][]any, len(r.Stages))
	for i, s := range r.Stages {
		rows[i] = []any{s.Entity, s.In, s.Filtered, s.Out, s.Units, s.Created, s.Skipped, s.Failed}
	}
	if err := w.table(SheetSummary, start, columns, rows); err != nil {
		return err
	}
	return w.f.SetColWidth(SheetSummary, "A", "B", 24)
}

func (w *sheetWriter) databases(set *catalog.ImportSet) error {
	if _, err := w.f.NewSheet(SheetDatabases); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	columns := []column{{"Database", kindText, 30}, {"Location", kindText, 60}, {"Description", kindText, 40}}

	var rows [][]any
	for _, u := range set.Databases {
		for _, it := range u.Items {
			rows = append(rows, []any{it.Name(), stringField(it, "locationUri"), stringField(it, "description")})
		}
	}
	return w.table(SheetDatabases, 1, columns, rows)
}

func (w *sheetWriter) tables(set *catalog.ImportSet) error {
	if _, err := w.f.NewSheet(SheetTables); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	columns := []column{
		{"Database", kindText, 24}, {"Table", kindText, 30}, {"Type", kindText, 18},
		{"Location", kindText, 60}, {"Partitions", kindInt, 12}, {"Batches", kindInt, 12},
	}

	type counts struct{ partitions, batches int }
	perTable := make(map[string]*counts)
	for _, p := range set.Partitions {
		key := p.Database + "." + p.Table
		c := perTable[key]
		if c == nil {
			c = &counts{}
			perTable[key] = c
		}
		c.partitions += len(p.Items)
		c.batches++
	}

	var rows [][]any
	for _, u := range set.Tables {
		for _, it := range u.Items {
			c := perTable[u.Database+"."+it.Name()]
			if c == nil {
				c = &counts{}
			}
			rows = append(rows, []any{u.Database, it.Name(), stringField(it, "tableType"), tableLocation(it), c.partitions, c.batches})
		}
	}
	return w.table(SheetTables, 1, columns, rows)
}

func (w *sheetWriter) failures(entries []retry.DLQEntry) error {
	if _, err := w.f.NewSheet(SheetFailures); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	columns := []column{
		{"Time", kindTime, 20}, {"Unit", kindText, 40}, {"Failure", kindText, 22},
		{"Attempts", kindInt, 10}, {"Error", kindText, 80},
	}
	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{e.Timestamp, e.Unit, e.FailureType, e.Attempts, e.LastError}
	}
	return w.table(SheetFailures, 1, columns, rows)
}

// table пишет заголовок в строку start и данные под ним
func (w *sheetWriter) table(sheet string, start int, columns []column, rows [][]any) error {
	for col, c := range columns {
		name := columnName(col + 1)
		cell := name + fmt.Sprint(start)
		if err := w.f.SetCellValue(sheet, cell, c.header); err != nil {
			return fmt.Errorf("%s!%s: %w", sheet, cell, err)
		}
		if err := w.f.SetCellStyle(sheet, cell, cell, w.headerStyle); err != nil {
			return fmt.Errorf("%s!%s: %w", sheet, cell, err)
		}
		if c.width > 0 {
			if err := w.f.SetColWidth(sheet, name, name, c.width); err != nil {
				return fmt.Errorf("%s: %w", sheet, err)
			}
		}
	}

	for i, row := range rows {
		for col, v := range row {
			if err := w.set(sheet, columnName(col+1), start+1+i, v, columns[col].kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *sheetWriter) set(sheet, col string, row int, v any, kind cellKind) error {
	cell := col + fmt.Sprint(row)
	if t, ok := v.(time.Time); ok && t.IsZero() {
		v = ""
	}
	if err := w.f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	return w.f.SetCellStyle(sheet, cell, cell, w.styles[kind])
}

// columnName - convert column index to Excel column name (1 → A, 27 → AA)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

func stringField(it catalog.Item, key string) string {
	s, _ := it[key].(string)
	return s
}

func tableLocation(it catalog.Item) string {
	switch sd := it["storageDescriptor"].(type) {
	case map[string]any:
		s, _ := sd["location"].(string)
		return s
	case catalog.Item:
		return stringField(sd, "location")
	}
	return ""
}
