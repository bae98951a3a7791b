package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/queue"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// mustApplication регистрирует сотрудника разряда bps и его заявку.
func (e *testEnv) mustApplication(t *testing.T, bps *model.Bps, name string, points int) *model.Application {
	t.Helper()
	ctx := context.Background()
	emp, err := e.waiting.CreateEmployee(ctx, EmployeeInput{
		Name:        name,
		Designation: "Officer",
		CNIC:        fmt.Sprintf("cnic-%s", name),
		Directorate: "Estate",
		BpsID:       bps.ID,
	})
	if err != nil {
		t.Fatalf("CreateEmployee(%s) ошибка: %v", name, err)
	}
	app, err := e.waiting.SubmitApplication(ctx, ApplicationInput{EmployeeID: emp.ID, PriorityPoints: points})
	if err != nil {
		t.Fatalf("SubmitApplication(%s) ошибка: %v", name, err)
	}
	return app
}

func (e *testEnv) mustBps(t *testing.T, code string, rank int) *model.Bps {
	t.Helper()
	b, err := e.waiting.CreateBps(context.Background(), code, rank)
	if err != nil {
		t.Fatalf("CreateBps(%s) ошибка: %v", code, err)
	}
	return b
}

func (e *testEnv) mustApprove(t *testing.T, appID int64) *model.WaitingEntry {
	t.Helper()
	w, err := e.waiting.Approve(context.Background(), appID)
	if err != nil {
		t.Fatalf("Approve(%d) ошибка: %v", appID, err)
	}
	return w
}

// Сценарий: A и B одного ранга в порядке одобрения, C — более высокого ранга.
func TestApprove_PriorityOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps5 := env.mustBps(t, "BPS-5", 5)
	bps3 := env.mustBps(t, "BPS-3", 3)

	a := env.mustApprove(t, env.mustApplication(t, bps5, "A", 0).ID)
	b := env.mustApprove(t, env.mustApplication(t, bps5, "B", 100).ID)
	c := env.mustApprove(t, env.mustApplication(t, bps3, "C", 0).ID)

	if a.Priority != 5*queue.Bucket || b.Priority != 5*queue.Bucket+1 {
		t.Errorf("приоритеты A/B = %d/%d", a.Priority, b.Priority)
	}
	if !(c.Priority < a.Priority && c.Priority < b.Priority) {
		t.Errorf("приоритет C = %d должен быть меньше A и B", c.Priority)
	}
	if a.EmployeeName != "A" || a.BpsCode != "BPS-5" || a.ApplicationStatus != model.ApplicationApproved {
		t.Errorf("позиция A = %+v", a)
	}

	items, total, err := env.waiting.List(ctx, repository.WaitingFilter{})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 3 {
		t.Fatalf("позиций = %d, ожидали 3", total)
	}
	got := []string{items[0].EmployeeName, items[1].EmployeeName, items[2].EmployeeName}
	if got[0] != "C" || got[1] != "A" || got[2] != "B" {
		t.Errorf("порядок = %v, ожидали [C A B]", got)
	}
}

func TestApprove_InvalidState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-17", 17)
	app := env.mustApplication(t, bps, "A", 0)

	if _, err := env.waiting.Approve(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("Approve() несуществующей = %v, ожидали ErrNotFound", err)
	}

	env.mustApprove(t, app.ID)
	if _, err := env.waiting.Approve(ctx, app.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("повторный Approve() = %v, ожидали ErrInvalidState", err)
	}
}

// Отклонение одобренной заявки убирает её из листа; повторное одобрение
// ставит в конец ранга.
func TestRejectAndReapprove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-10", 10)
	first := env.mustApplication(t, bps, "A", 0)
	second := env.mustApplication(t, bps, "B", 0)

	env.mustApprove(t, first.ID)
	wB := env.mustApprove(t, second.ID)

	rejected, err := env.waiting.RejectApplication(ctx, first.ID)
	if err != nil {
		t.Fatalf("RejectApplication() ошибка: %v", err)
	}
	if rejected.Status != model.ApplicationRejected {
		t.Errorf("статус = %s, ожидали rejected", rejected.Status)
	}

	_, total, err := env.waiting.List(ctx, repository.WaitingFilter{})
	if err != nil || total != 1 {
		t.Fatalf("после отклонения позиций = %d (%v), ожидали 1", total, err)
	}

	wA := env.mustApprove(t, first.ID)
	if wA.Priority <= wB.Priority {
		t.Errorf("повторно одобренная заявка (%d) должна идти после B (%d)", wA.Priority, wB.Priority)
	}

	if _, err := env.waiting.RejectApplication(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("RejectApplication() несуществующей = %v, ожидали ErrNotFound", err)
	}
}

func TestAssignAndRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-17", 17)
	app := env.mustApplication(t, bps, "Ali", 0)
	w := env.mustApprove(t, app.ID)
	h := env.mustHouse(t, "F-1")

	a, err := env.waiting.Assign(ctx, w.ID, h.ID)
	if err != nil {
		t.Fatalf("Assign() ошибка: %v", err)
	}
	if a.AllotteeName != "Ali" || a.PayScale != "BPS-17" || a.Directorate != "Estate" {
		t.Errorf("аллотмент = %+v", a)
	}
	if a.ApplicationID == nil || *a.ApplicationID != app.ID {
		t.Errorf("application_id = %v, ожидали %d", a.ApplicationID, app.ID)
	}
	if got := env.houseStatus(t, h.ID); got != model.HouseOccupied {
		t.Errorf("статус дома = %s, ожидали occupied", got)
	}
	gotApp, _ := env.waiting.GetApplication(ctx, app.ID)
	if gotApp.Status != model.ApplicationAllotted {
		t.Errorf("статус заявки = %s, ожидали allotted", gotApp.Status)
	}
	if _, total, _ := env.waiting.List(ctx, repository.WaitingFilter{}); total != 0 {
		t.Errorf("позиций в листе = %d, ожидали 0", total)
	}

	released, err := env.waiting.Release(ctx, a.ID)
	if err != nil {
		t.Fatalf("Release() ошибка: %v", err)
	}
	if released.QtrStatus != model.QtrEnded || released.AllotteeStatus != model.AllotteeCancelled || released.Notes != releasedNote {
		t.Errorf("после отмены = %+v", released)
	}
	if got := env.houseStatus(t, h.ID); got != model.HouseVacant {
		t.Errorf("статус дома = %s, ожидали vacant", got)
	}

	if _, err := env.waiting.Release(ctx, a.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("повторный Release() = %v, ожидали ErrInvalidState", err)
	}
	if _, err := env.waiting.Release(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("Release() несуществующего = %v, ожидали ErrNotFound", err)
	}
}

// Сценарий: распределение занятого дома не меняет ни лист, ни заявку, ни дом.
func TestAssign_OccupiedHouse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-17", 17)
	app := env.mustApplication(t, bps, "Ali", 0)
	w := env.mustApprove(t, app.ID)
	h := env.mustHouse(t, "F-1")
	occupant := env.mustAllot(t, h.ID, "Bilal")

	if _, err := env.waiting.Assign(ctx, w.ID, h.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Assign() = %v, ожидали ErrInvalidState", err)
	}

	if _, err := env.store.Repos().WaitingList.GetByID(ctx, w.ID); err != nil {
		t.Errorf("позиция листа удалена: %v", err)
	}
	gotApp, _ := env.waiting.GetApplication(ctx, app.ID)
	if gotApp.Status != model.ApplicationApproved {
		t.Errorf("статус заявки = %s, ожидали approved", gotApp.Status)
	}
	if got := env.houseStatus(t, h.ID); got != model.HouseOccupied {
		t.Errorf("статус дома = %s, ожидали occupied", got)
	}
	items, total, _ := env.allotments.ListAllotments(ctx, repository.AllotmentFilter{HouseID: &h.ID})
	if total != 1 || items[0].ID != occupant.ID {
		t.Errorf("аллотментов дома = %d, ожидали только исходный", total)
	}
}

// Сценарий: распределение дома с ручным статусом vacant делает его occupied.
func TestAssign_ManualVacantHouse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-17", 17)
	app := env.mustApplication(t, bps, "Ali", 0)
	w := env.mustApprove(t, app.ID)
	h := env.mustHouse(t, "F-1")

	vacant := model.HouseVacant
	if _, err := env.houses.UpdateHouse(ctx, h.ID, HouseUpdate{Status: &vacant}); err != nil {
		t.Fatalf("UpdateHouse() ошибка: %v", err)
	}

	if _, err := env.waiting.Assign(ctx, w.ID, h.ID); err != nil {
		t.Fatalf("Assign() ошибка: %v", err)
	}

	got, err := env.houses.GetHouse(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetHouse() ошибка: %v", err)
	}
	if got.Status != model.HouseOccupied || got.StatusManual {
		t.Errorf("дом после распределения: status=%s manual=%v, ожидали occupied/false", got.Status, got.StatusManual)
	}
}

func TestAssign_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-17", 17)
	w := env.mustApprove(t, env.mustApplication(t, bps, "Ali", 0).ID)
	h := env.mustHouse(t, "F-1")

	if _, err := env.waiting.Assign(ctx, 404, h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Assign() несуществующей позиции = %v, ожидали ErrNotFound", err)
	}
	if _, err := env.waiting.Assign(ctx, w.ID, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("Assign() несуществующего дома = %v, ожидали ErrNotFound", err)
	}
}

func TestWaitingList_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-17", 17)

	emp, err := env.waiting.CreateEmployee(ctx, EmployeeInput{Name: "Ali", CNIC: "1", BpsID: bps.ID})
	if err != nil {
		t.Fatalf("CreateEmployee() ошибка: %v", err)
	}
	app, err := env.waiting.SubmitApplication(ctx, ApplicationInput{EmployeeID: emp.ID, PreferredSector: strPtr(" G-6 ")})
	if err != nil {
		t.Fatalf("SubmitApplication() ошибка: %v", err)
	}
	env.mustApprove(t, app.ID)
	env.mustApprove(t, env.mustApplication(t, bps, "Bilal", 0).ID)

	_, total, err := env.waiting.List(ctx, repository.WaitingFilter{Sector: strPtr("G-6")})
	if err != nil || total != 1 {
		t.Errorf("фильтр по сектору: %d (%v), ожидали 1", total, err)
	}
	_, total, err = env.waiting.List(ctx, repository.WaitingFilter{Status: strPtr(model.ApplicationPending)})
	if err != nil || total != 0 {
		t.Errorf("фильтр по статусу pending: %d (%v), ожидали 0", total, err)
	}
}

func TestReferenceData_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bps := env.mustBps(t, "BPS-1", 1)

	if _, err := env.waiting.CreateBps(ctx, "BPS-1", 2); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный разряд: %v, ожидали ErrConflict", err)
	}
	if _, err := env.waiting.CreateBps(ctx, "BPS-X", -1); !errors.Is(err, ErrValidation) {
		t.Errorf("отрицательный ранг: %v, ожидали ErrValidation", err)
	}
	if _, err := env.waiting.CreateEmployee(ctx, EmployeeInput{Name: "Ali", CNIC: "1", BpsID: 404}); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий разряд: %v, ожидали ErrNotFound", err)
	}
	if _, err := env.waiting.CreateEmployee(ctx, EmployeeInput{Name: "Ali", CNIC: "1", BpsID: bps.ID}); err != nil {
		t.Fatalf("CreateEmployee() ошибка: %v", err)
	}
	if _, err := env.waiting.CreateEmployee(ctx, EmployeeInput{Name: "Bilal", CNIC: "1", BpsID: bps.ID}); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный CNIC: %v, ожидали ErrConflict", err)
	}
	if _, err := env.waiting.SubmitApplication(ctx, ApplicationInput{EmployeeID: 404}); !errors.Is(err, ErrNotFound) {
		t.Errorf("заявка несуществующего сотрудника: %v, ожидали ErrNotFound", err)
	}
	if _, err := env.waiting.GetEmployee(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEmployee() = %v, ожидали ErrNotFound", err)
	}

	list, err := env.waiting.ListBps(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("ListBps() = %d (%v), ожидали 1", len(list), err)
	}
}
