// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс или занятое состояние).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrInvalidState — операция недопустима в текущем состоянии сущности.
	ErrInvalidState = errors.New("операция недопустима в текущем состоянии")
	// ErrUnauthorized — отсутствуют или недействительны учётные данные.
	ErrUnauthorized = errors.New("требуется аутентификация")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)

// fromRepo переводит ошибки репозитория в ошибки сервиса.
// what описывает сущность для сообщения, прочие ошибки возвращаются как есть.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, what)
	case errors.Is(err, repository.ErrReferenced):
		return fmt.Errorf("%w: %s имеет историю", ErrInvalidState, what)
	default:
		return err
	}
}
