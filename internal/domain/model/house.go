// Пакет model — доменные модели учёта жилого фонда.
package model

import "time"

// Статусы дома.
const (
	HouseVacant      = "vacant"
	HouseOccupied    = "occupied"
	HouseMaintenance = "maintenance"
	HouseReserved    = "reserved"
	HouseMissing     = "missing"
	HouseOther       = "other"
)

// HouseStatuses — допустимые статусы дома.
var HouseStatuses = []string{
	HouseVacant, HouseOccupied, HouseMaintenance, HouseReserved, HouseMissing, HouseOther,
}

// HouseTypeCodes — допустимые категории дома.
var HouseTypeCodes = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// House — дом (квартира) жилого фонда.
// Хранится в таблице houses.
type House struct {
	// ID — идентификатор записи
	ID int64
	// FileNo — номер дела, уникальный бизнес-ключ
	FileNo string
	// QtrNo — номер квартиры
	QtrNo string
	// Street — улица
	Street string
	// Sector — сектор (колония)
	Sector string
	// TypeCode — категория дома (A–H)
	TypeCode string
	// Status — текущий статус (vacant, occupied, maintenance, reserved, missing, other)
	Status string
	// StatusManual — статус выставлен администратором и не пересчитывается
	StatusManual bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// IsValidHouseStatus проверяет, является ли строка допустимым статусом дома.
func IsValidHouseStatus(s string) bool {
	for _, v := range HouseStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidTypeCode проверяет категорию дома.
func IsValidTypeCode(s string) bool {
	for _, v := range HouseTypeCodes {
		if v == s {
			return true
		}
	}
	return false
}
