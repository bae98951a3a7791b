package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fazalktk93/accommodation-sub000/internal/xlsx"
)

// ImportError — строка таблицы, которую не удалось загрузить.
type ImportError struct {
	Line    int    `json:"line"`
	FileNo  string `json:"file_no"`
	Message string `json:"message"`
}

// ImportResult — итог загрузки реестра домов.
type ImportResult struct {
	Total    int           `json:"total"`
	Created  int           `json:"created"`
	Existing int           `json:"existing"`
	Errors   []ImportError `json:"errors"`
}

// ImportHouses загружает дома из строк таблицы.
// Существующие номера дел не изменяются; ошибки валидации строк
// собираются в результат, прочие ошибки прерывают загрузку.
func (s *HouseService) ImportHouses(ctx context.Context, rows []xlsx.HouseRow) (*ImportResult, error) {
	res := &ImportResult{Total: len(rows), Errors: []ImportError{}}

	for _, row := range rows {
		_, created, err := s.CreateOrGetHouse(ctx, HouseInput{
			FileNo:   row.FileNo,
			QtrNo:    row.QtrNo,
			Street:   row.Street,
			Sector:   row.Sector,
			TypeCode: row.TypeCode,
			Status:   row.Status,
		})
		switch {
		case err == nil && created:
			res.Created++
		case err == nil:
			res.Existing++
		case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
			res.Errors = append(res.Errors, ImportError{Line: row.Line, FileNo: row.FileNo, Message: err.Error()})
		default:
			return nil, err
		}
	}

	s.logger.Info("Реестр домов загружен",
		slog.Int("total", res.Total),
		slog.Int("created", res.Created),
		slog.Int("existing", res.Existing),
		slog.Int("failed", len(res.Errors)),
	)
	return res, nil
}
