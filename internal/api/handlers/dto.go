// dto.go — структуры запросов и ответов HTTP API и преобразование моделей.
package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
)

// dateLayout — формат календарных дат в API.
const dateLayout = "2006-01-02"

// Date — календарная дата в формате YYYY-MM-DD.
// При разборе принимается также RFC 3339.
type Date struct {
	time.Time
}

// UnmarshalJSON разбирает дату из строки.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("дата должна быть строкой: %w", err)
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("некорректная дата %q: ожидается YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

// MarshalJSON форматирует дату как YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// timePtr возвращает время даты или nil.
func (d *Date) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// datePtr оборачивает время в Date для ответа.
func datePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// --- Аутентификация ---

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type meResponse struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// --- Дома ---

type houseCreateRequest struct {
	FileNo       string `json:"file_no" validate:"required,max=64"`
	QtrNo        string `json:"qtr_no" validate:"max=64"`
	Street       string `json:"street" validate:"max=128"`
	Sector       string `json:"sector" validate:"max=64"`
	TypeCode     string `json:"type_code" validate:"max=8"`
	Status       string `json:"status" validate:"max=32"`
	StatusManual bool   `json:"status_manual"`
}

type houseUpdateRequest struct {
	FileNo       *string `json:"file_no" validate:"omitempty,max=64"`
	QtrNo        *string `json:"qtr_no" validate:"omitempty,max=64"`
	Street       *string `json:"street" validate:"omitempty,max=128"`
	Sector       *string `json:"sector" validate:"omitempty,max=64"`
	TypeCode     *string `json:"type_code" validate:"omitempty,max=8"`
	Status       *string `json:"status" validate:"omitempty,max=32"`
	StatusManual *bool   `json:"status_manual"`
}

type houseResponse struct {
	ID           int64     `json:"id"`
	FileNo       string    `json:"file_no"`
	QtrNo        string    `json:"qtr_no"`
	Street       string    `json:"street"`
	Sector       string    `json:"sector"`
	TypeCode     string    `json:"type_code"`
	Status       string    `json:"status"`
	StatusManual bool      `json:"status_manual"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func mapHouse(h *model.House) houseResponse {
	return houseResponse{
		ID:           h.ID,
		FileNo:       h.FileNo,
		QtrNo:        h.QtrNo,
		Street:       h.Street,
		Sector:       h.Sector,
		TypeCode:     h.TypeCode,
		Status:       h.Status,
		StatusManual: h.StatusManual,
		CreatedAt:    h.CreatedAt,
		UpdatedAt:    h.UpdatedAt,
	}
}

type recomputeAllResponse struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
}

// --- Аллотменты ---

type allotmentCreateRequest struct {
	HouseID        int64  `json:"house_id" validate:"required,gt=0"`
	AllotteeName   string `json:"allottee_name" validate:"required,max=128"`
	Designation    string `json:"designation" validate:"max=128"`
	CNIC           string `json:"cnic" validate:"max=32"`
	Directorate    string `json:"directorate" validate:"max=128"`
	PayScale       string `json:"pay_scale" validate:"max=32"`
	AllotmentDate  *Date  `json:"allotment_date"`
	OccupationDate *Date  `json:"occupation_date"`
	AllotteeStatus string `json:"allottee_status" validate:"omitempty,oneof=in_service retired cancelled"`
	Notes          string `json:"notes" validate:"max=2000"`
}

type allotmentUpdateRequest struct {
	AllotteeName   *string `json:"allottee_name" validate:"omitempty,max=128"`
	Designation    *string `json:"designation" validate:"omitempty,max=128"`
	CNIC           *string `json:"cnic" validate:"omitempty,max=32"`
	Directorate    *string `json:"directorate" validate:"omitempty,max=128"`
	PayScale       *string `json:"pay_scale" validate:"omitempty,max=32"`
	AllotmentDate  *Date   `json:"allotment_date"`
	OccupationDate *Date   `json:"occupation_date"`
	VacationDate   *Date   `json:"vacation_date"`
	AllotteeStatus *string `json:"allottee_status" validate:"omitempty,oneof=in_service retired cancelled"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

type allotmentEndRequest struct {
	VacationDate *Date  `json:"vacation_date"`
	Notes        string `json:"notes" validate:"max=2000"`
}

type allotmentResponse struct {
	ID             int64     `json:"id"`
	HouseID        int64     `json:"house_id"`
	ApplicationID  *int64    `json:"application_id,omitempty"`
	AllotteeName   string    `json:"allottee_name"`
	Designation    string    `json:"designation"`
	CNIC           string    `json:"cnic"`
	Directorate    string    `json:"directorate"`
	PayScale       string    `json:"pay_scale"`
	AllotmentDate  *Date     `json:"allotment_date"`
	OccupationDate *Date     `json:"occupation_date"`
	VacationDate   *Date     `json:"vacation_date"`
	QtrStatus      string    `json:"qtr_status"`
	AllotteeStatus string    `json:"allottee_status"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func mapAllotment(a *model.Allotment) allotmentResponse {
	return allotmentResponse{
		ID:             a.ID,
		HouseID:        a.HouseID,
		ApplicationID:  a.ApplicationID,
		AllotteeName:   a.AllotteeName,
		Designation:    a.Designation,
		CNIC:           a.CNIC,
		Directorate:    a.Directorate,
		PayScale:       a.PayScale,
		AllotmentDate:  datePtr(a.AllotmentDate),
		OccupationDate: datePtr(a.OccupationDate),
		VacationDate:   datePtr(a.VacationDate),
		QtrStatus:      a.QtrStatus,
		AllotteeStatus: a.AllotteeStatus,
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// --- Движение дел ---

// issueRequest — выдача дела по house_id или file_no (ровно одно из двух).
type issueRequest struct {
	HouseID *int64  `json:"house_id" validate:"omitempty,gt=0"`
	FileNo  *string `json:"file_no" validate:"omitempty,min=1,max=64"`
	ToWhom  string  `json:"to_whom" validate:"required,max=128"`
	Remarks string  `json:"remarks" validate:"max=1000"`
}

type receiveRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

type movementResponse struct {
	ID       int64     `json:"id"`
	HouseID  int64     `json:"house_id"`
	FileNo   string    `json:"file_no,omitempty"`
	Movement string    `json:"movement"`
	ToWhom   string    `json:"to_whom"`
	Remarks  string    `json:"remarks"`
	MovedAt  time.Time `json:"moved_at"`
	MovedBy  *int64    `json:"moved_by,omitempty"`
	IssueID  *int64    `json:"issue_id,omitempty"`
}

func mapMovement(m *model.FileMovement) movementResponse {
	return movementResponse{
		ID:       m.ID,
		HouseID:  m.HouseID,
		FileNo:   m.FileNo,
		Movement: m.Movement,
		ToWhom:   m.ToWhom,
		Remarks:  m.Remarks,
		MovedAt:  m.MovedAt,
		MovedBy:  m.MovedBy,
		IssueID:  m.IssueID,
	}
}

// --- Лист ожидания ---

type bpsRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Rank int    `json:"rank" validate:"gte=0"`
}

type bpsResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Rank int    `json:"rank"`
}

func mapBps(b *model.Bps) bpsResponse {
	return bpsResponse{ID: b.ID, Code: b.Code, Rank: b.Rank}
}

type employeeRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Designation string `json:"designation" validate:"max=128"`
	CNIC        string `json:"cnic" validate:"required,max=32"`
	Directorate string `json:"directorate" validate:"max=128"`
	BpsID       int64  `json:"bps_id" validate:"required,gt=0"`
}

type employeeResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Designation string    `json:"designation"`
	CNIC        string    `json:"cnic"`
	Directorate string    `json:"directorate"`
	BpsID       int64     `json:"bps_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func mapEmployee(e *model.Employee) employeeResponse {
	return employeeResponse{
		ID:          e.ID,
		Name:        e.Name,
		Designation: e.Designation,
		CNIC:        e.CNIC,
		Directorate: e.Directorate,
		BpsID:       e.BpsID,
		CreatedAt:   e.CreatedAt,
	}
}

type applicationRequest struct {
	EmployeeID      int64   `json:"employee_id" validate:"required,gt=0"`
	BpsID           *int64  `json:"bps_id" validate:"omitempty,gt=0"`
	PreferredSector *string `json:"preferred_sector" validate:"omitempty,max=64"`
	PriorityPoints  int     `json:"priority_points" validate:"gte=0"`
	Remarks         string  `json:"remarks" validate:"max=1000"`
}

type applicationResponse struct {
	ID              int64     `json:"id"`
	EmployeeID      int64     `json:"employee_id"`
	BpsID           int64     `json:"bps_id"`
	Status          string    `json:"status"`
	PreferredSector *string   `json:"preferred_sector,omitempty"`
	PriorityPoints  int       `json:"priority_points"`
	Remarks         string    `json:"remarks"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func mapApplication(a *model.Application) applicationResponse {
	return applicationResponse{
		ID:              a.ID,
		EmployeeID:      a.EmployeeID,
		BpsID:           a.BpsID,
		Status:          a.Status,
		PreferredSector: a.PreferredSector,
		PriorityPoints:  a.PriorityPoints,
		Remarks:         a.Remarks,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type waitingEntryResponse struct {
	ID                int64     `json:"id"`
	ApplicationID     int64     `json:"application_id"`
	Priority          int       `json:"priority"`
	Rank              int       `json:"rank"`
	PriorityPoints    int       `json:"priority_points"`
	ApplicationStatus string    `json:"application_status,omitempty"`
	PreferredSector   *string   `json:"preferred_sector,omitempty"`
	EmployeeName      string    `json:"employee_name,omitempty"`
	BpsCode           string    `json:"bps_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func mapWaitingEntry(e *model.WaitingEntry) waitingEntryResponse {
	return waitingEntryResponse{
		ID:                e.ID,
		ApplicationID:     e.ApplicationID,
		Priority:          e.Priority,
		Rank:              e.Rank,
		PriorityPoints:    e.PriorityPoints,
		ApplicationStatus: e.ApplicationStatus,
		PreferredSector:   e.PreferredSector,
		EmployeeName:      e.EmployeeName,
		BpsCode:           e.BpsCode,
		CreatedAt:         e.CreatedAt,
	}
}

type assignRequest struct {
	HouseID int64 `json:"house_id" validate:"required,gt=0"`
}

// --- Пользователи ---

type userCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	FullName string `json:"full_name" validate:"max=128"`
	Role     string `json:"role" validate:"max=32"`
	Password string `json:"password" validate:"required,max=128"`
	IsActive *bool  `json:"is_active"`
}

type userUpdateRequest struct {
	FullName    *string  `json:"full_name" validate:"omitempty,max=128"`
	Role        *string  `json:"role" validate:"omitempty,max=32"`
	IsActive    *bool    `json:"is_active"`
	Permissions []string `json:"permissions"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,max=128"`
}

type userResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func mapUser(u *model.User) userResponse {
	perms := u.Permissions
	if perms == nil {
		perms = []string{}
	}
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Role:        u.Role,
		Permissions: perms,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
