// Пакет xlsx — выгрузка реестра домов и листа ожидания в Excel
// и загрузка домов из таблиц старого формата.
//
// Таблицы старого формата называют колонки по-разному (file_no, file,
// file_number и т.п.); сопоставление названий выполняется только здесь,
// дальше по системе идут канонические поля.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// ErrMissingColumn — в таблице нет обязательной колонки.
var ErrMissingColumn = errors.New("нет обязательной колонки")

// ErrEmptyWorkbook — в книге нет листов.
var ErrEmptyWorkbook = errors.New("в книге нет листов")

const (
	housesSheet  = "Houses"
	waitingSheet = "Waiting list"
	dateLayout   = "2006-01-02"
)

// HousesHeader — колонки выгрузки домов.
var HousesHeader = []string{"file_no", "qtr_no", "street", "sector", "type_code", "status", "status_manual"}

// WaitingHeader — колонки выгрузки листа ожидания.
var WaitingHeader = []string{"position", "priority", "employee", "bps", "rank", "priority_points", "preferred_sector", "status", "approved_at"}

// houseAliases — названия колонок старых таблиц → каноническое поле.
var houseAliases = map[string]string{
	"file_no":     "file_no",
	"file":        "file_no",
	"file_number": "file_no",
	"qtr_no":      "qtr_no",
	"qtr":         "qtr_no",
	"quarter_no":  "qtr_no",
	"street":      "street",
	"sector":      "sector",
	"colony":      "sector",
	"type_code":   "type_code",
	"type":        "type_code",
	"category":    "type_code",
	"status":      "status",
}

// HouseRow — строка загружаемой таблицы домов.
type HouseRow struct {
	// Line — номер строки в листе (с 1, заголовок — строка 1)
	Line     int
	FileNo   string
	QtrNo    string
	Street   string
	Sector   string
	TypeCode string
	Status   string
}

// WriteHouses записывает книгу с реестром домов в w.
func WriteHouses(w io.Writer, houses []*model.House) error {
	rows := make([][]any, 0, len(houses))
	for _, h := range houses {
		manual := "no"
		if h.StatusManual {
			manual = "yes"
		}
		rows = append(rows, []any{h.FileNo, h.QtrNo, h.Street, h.Sector, h.TypeCode, h.Status, manual})
	}
	return writeBook(w, housesSheet, HousesHeader, []float64{14, 10, 10, 12, 10, 12, 14}, rows)
}

// WriteWaitingList записывает книгу с листом ожидания в w.
// entries должны быть уже упорядочены по очереди.
func WriteWaitingList(w io.Writer, entries []*model.WaitingEntry) error {
	rows := make([][]any, 0, len(entries))
	for i, e := range entries {
		sector := ""
		if e.PreferredSector != nil {
			sector = *e.PreferredSector
		}
		rows = append(rows, []any{
			i + 1, e.Priority, e.EmployeeName, e.BpsCode, e.Rank,
			e.PriorityPoints, sector, e.ApplicationStatus, e.CreatedAt.UTC().Format(dateLayout),
		})
	}
	return writeBook(w, waitingSheet, WaitingHeader, []float64{10, 12, 28, 10, 8, 16, 18, 12, 14}, rows)
}

// writeBook создаёт книгу из одного листа с оформленным заголовком.
func writeBook(w io.Writer, sheet string, header []string, widths []float64, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("создание листа: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("удаление листа по умолчанию: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("стиль заголовка: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("заголовок %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("стиль заголовка %s: %w", cell, err)
		}
		if col < len(widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return err
			}
			if err := f.SetColWidth(sheet, name, name, widths[col]); err != nil {
				return fmt.Errorf("ширина колонки %s: %w", name, err)
			}
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("строка %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("закрепление заголовка: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("запись книги: %w", err)
	}
	return nil
}

// ReadHouses читает дома с первого листа книги.
// Названия колонок сопоставляются без учёта регистра и пробелов;
// пустые строки пропускаются.
func ReadHouses(r io.Reader) ([]HouseRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("чтение книги: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("чтение строк листа %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file_no", ErrMissingColumn)
	}

	columns := make(map[string]int)
	for i, title := range rows[0] {
		field, ok := houseAliases[normalizeHeader(title)]
		if !ok {
			continue
		}
		if _, dup := columns[field]; !dup {
			columns[field] = i
		}
	}
	if _, ok := columns["file_no"]; !ok {
		return nil, fmt.Errorf("%w: file_no", ErrMissingColumn)
	}

	var out []HouseRow
	for i, row := range rows[1:] {
		get := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		hr := HouseRow{
			Line:     i + 2,
			FileNo:   get("file_no"),
			QtrNo:    get("qtr_no"),
			Street:   get("street"),
			Sector:   get("sector"),
			TypeCode: get("type_code"),
			Status:   strings.ToLower(get("status")),
		}
		if hr == (HouseRow{Line: hr.Line}) {
			continue
		}
		out = append(out, hr)
	}
	return out, nil
}

// normalizeHeader приводит название колонки к виду "file_number".
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(s)
	return s
}
