package xlsx

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// book строит книгу из строк для теста загрузки.
func book(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return &buf
}

func TestReadHouses_HeaderAliases(t *testing.T) {
	tests := []struct {
		name   string
		header []any
	}{
		{name: "канонические названия", header: []any{"file_no", "qtr_no", "sector", "type_code"}},
		{name: "file", header: []any{"File", "Qtr", "Colony", "Type"}},
		{name: "File Number", header: []any{"File Number", "Quarter No", "Sector", "Category"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := book(t, [][]any{
				tt.header,
				{" F-100 ", "12", "G-6", "C"},
				{},
				{"F-101", "13", "G-7", "D"},
			})

			rows, err := ReadHouses(buf)
			if err != nil {
				t.Fatalf("ReadHouses() ошибка: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("строк = %d, ожидали 2 (пустая пропускается)", len(rows))
			}
			first := rows[0]
			if first.FileNo != "F-100" || first.QtrNo != "12" || first.Sector != "G-6" || first.TypeCode != "C" || first.Line != 2 {
				t.Errorf("первая строка = %+v", first)
			}
			if rows[1].Line != 4 {
				t.Errorf("номер строки = %d, ожидали 4", rows[1].Line)
			}
		})
	}
}

func TestReadHouses_MissingFileNo(t *testing.T) {
	buf := book(t, [][]any{{"qtr_no", "sector"}, {"1", "G-6"}})

	if _, err := ReadHouses(buf); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("ReadHouses() = %v, ожидали ErrMissingColumn", err)
	}
}

func TestReadHouses_NotAWorkbook(t *testing.T) {
	if _, err := ReadHouses(bytes.NewBufferString("not a workbook")); err == nil {
		t.Error("ReadHouses() должен вернуть ошибку для не-xlsx данных")
	}
}

// Выгрузка домов читается обратно загрузкой.
func TestWriteHouses_ReadableByImport(t *testing.T) {
	houses := []*model.House{
		{FileNo: "F-1", QtrNo: "1", Street: "5", Sector: "G-6", TypeCode: "A", Status: model.HouseVacant},
		{FileNo: "F-2", QtrNo: "2", Street: "6", Sector: "G-7", TypeCode: "B", Status: model.HouseOccupied, StatusManual: true},
	}

	var buf bytes.Buffer
	if err := WriteHouses(&buf, houses); err != nil {
		t.Fatalf("WriteHouses() ошибка: %v", err)
	}

	rows, err := ReadHouses(&buf)
	if err != nil {
		t.Fatalf("ReadHouses() ошибка: %v", err)
	}
	if len(rows) != 2 || rows[1].FileNo != "F-2" || rows[1].Status != model.HouseOccupied || rows[1].Street != "6" {
		t.Errorf("прочитано = %+v", rows)
	}
}

func TestWriteWaitingList(t *testing.T) {
	sector := "G-6"
	entries := []*model.WaitingEntry{
		{Priority: 30000, Rank: 3, EmployeeName: "C", BpsCode: "BPS-3", ApplicationStatus: "approved", CreatedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
		{Priority: 50000, Rank: 5, EmployeeName: "A", BpsCode: "BPS-5", PreferredSector: &sector, ApplicationStatus: "approved"},
	}

	var buf bytes.Buffer
	if err := WriteWaitingList(&buf, entries); err != nil {
		t.Fatalf("WriteWaitingList() ошибка: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("строк = %d, ожидали 3", len(rows))
	}
	if rows[0][0] != "position" || rows[1][2] != "C" || rows[1][8] != "2024-01-02" || rows[2][6] != "G-6" {
		t.Errorf("содержимое = %v", rows)
	}
}
