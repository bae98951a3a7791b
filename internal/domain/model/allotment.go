package model

import "time"

// Состояние квартиры по аллотменту.
const (
	QtrActive = "active"
	QtrEnded  = "ended"
)

// Статус получателя.
const (
	AllotteeInService = "in_service"
	AllotteeRetired   = "retired"
	AllotteeCancelled = "cancelled"
)

// Allotment — запись о предоставлении дома жильцу.
// Хранится в таблице allotments, физически не удаляется.
type Allotment struct {
	// ID — идентификатор записи (порядок вставки)
	ID int64
	// HouseID — дом
	HouseID int64
	// ApplicationID — заявка из листа ожидания (nil для прямых аллотментов)
	ApplicationID *int64
	// AllotteeName — ФИО жильца
	AllotteeName string
	// Designation — должность
	Designation string
	// CNIC — номер удостоверения личности
	CNIC string
	// Directorate — подразделение
	Directorate string
	// PayScale — разряд оплаты (BPS)
	PayScale string
	// AllotmentDate — дата предоставления
	AllotmentDate *time.Time
	// OccupationDate — дата заселения
	OccupationDate *time.Time
	// VacationDate — дата освобождения
	VacationDate *time.Time
	// QtrStatus — active или ended
	QtrStatus string
	// AllotteeStatus — in_service, retired, cancelled
	AllotteeStatus string
	// Notes — накопительные примечания
	Notes string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// IsActive сообщает, представляет ли запись текущее проживание.
func (a *Allotment) IsActive() bool {
	return a.QtrStatus == QtrActive
}

// IsValidAllotteeStatus проверяет статус получателя.
func IsValidAllotteeStatus(s string) bool {
	switch s {
	case AllotteeInService, AllotteeRetired, AllotteeCancelled:
		return true
	}
	return false
}
