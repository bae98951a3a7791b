package model

import "time"

// Статусы заявки.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
	ApplicationAllotted = "allotted"
)

// Bps — разряд оплаты, определяющий очерёдность.
type Bps struct {
	ID int64
	// Code — обозначение разряда, например "BPS-17"
	Code string
	// Rank — ранг в очереди (меньше — раньше)
	Rank int
}

// Employee — сотрудник, подающий заявку.
type Employee struct {
	ID          int64
	Name        string
	Designation string
	CNIC        string
	Directorate string
	BpsID       int64
	CreatedAt   time.Time
}

// Application — заявка на предоставление дома.
type Application struct {
	// ID — идентификатор заявки
	ID int64
	// EmployeeID — заявитель
	EmployeeID int64
	// BpsID — разряд на момент подачи
	BpsID int64
	// Status — pending, approved, rejected, allotted
	Status string
	// PreferredSector — желаемый сектор (колония)
	PreferredSector *string
	// PriorityPoints — дополнительные баллы (больше — раньше внутри одной очереди)
	PriorityPoints int
	// Remarks — примечания
	Remarks string
	// CreatedAt — время подачи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// WaitingEntry — позиция в листе ожидания.
type WaitingEntry struct {
	// ID — идентификатор позиции
	ID int64
	// ApplicationID — заявка (1:1)
	ApplicationID int64
	// Priority — приоритет (меньше — раньше), назначается один раз при одобрении
	Priority int
	// Rank — ранг разряда на момент одобрения
	Rank int
	// CreatedAt — время одобрения
	CreatedAt time.Time

	// Поля заявки и сотрудника, заполняются при чтении списка.

	// PriorityPoints — баллы заявки
	PriorityPoints int
	// ApplicationStatus — статус заявки
	ApplicationStatus string
	// PreferredSector — желаемый сектор
	PreferredSector *string
	// EmployeeName — ФИО заявителя
	EmployeeName string
	// BpsCode — разряд заявителя
	BpsCode string
}
