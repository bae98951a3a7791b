package model

import "time"

// Виды движения дела.
const (
	MovementIssue   = "issue"
	MovementReceive = "receive"
)

// FileMovement — запись журнала движения бумажного дела дома.
// Журнал только дополняется: receive закрывает предшествующий issue
// ссылкой IssueID, исходная строка не изменяется.
type FileMovement struct {
	// ID — идентификатор записи (порядок вставки)
	ID int64
	// HouseID — дом, к которому относится дело
	HouseID int64
	// FileNo — номер дела (заполняется при чтении)
	FileNo string
	// Movement — issue или receive
	Movement string
	// ToWhom — кому выдано дело
	ToWhom string
	// Remarks — примечания
	Remarks string
	// MovedAt — время движения
	MovedAt time.Time
	// MovedBy — пользователь, оформивший движение
	MovedBy *int64
	// IssueID — для receive: закрываемая выдача
	IssueID *int64
}
