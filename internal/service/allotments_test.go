package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// Сценарий: заселение делает дом занятым, завершение — свободным.
func TestAllotment_OccupyAndVacate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.mustHouse(t, "F-100")

	if got := env.houseStatus(t, h.ID); got != model.HouseVacant {
		t.Fatalf("новый дом: %s, ожидали vacant", got)
	}

	a := env.mustAllot(t, h.ID, "Ali Khan")
	if a.QtrStatus != model.QtrActive || a.AllotteeStatus != model.AllotteeInService {
		t.Errorf("аллотмент = %s/%s, ожидали active/in_service", a.QtrStatus, a.AllotteeStatus)
	}
	if got := env.houseStatus(t, h.ID); got != model.HouseOccupied {
		t.Errorf("после заселения: %s, ожидали occupied", got)
	}

	ended, err := env.allotments.EndAllotment(ctx, a.ID, datePtr(2024, 1, 1), "")
	if err != nil {
		t.Fatalf("EndAllotment() ошибка: %v", err)
	}
	if ended.QtrStatus != model.QtrEnded {
		t.Errorf("qtr_status = %s, ожидали ended", ended.QtrStatus)
	}
	if ended.VacationDate == nil || !ended.VacationDate.Equal(*datePtr(2024, 1, 1)) {
		t.Errorf("vacation_date = %v, ожидали 2024-01-01", ended.VacationDate)
	}
	if got := env.houseStatus(t, h.ID); got != model.HouseVacant {
		t.Errorf("после завершения: %s, ожидали vacant", got)
	}
}

func TestCreateAllotment_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.mustHouse(t, "F-1")

	if _, err := env.allotments.CreateAllotment(ctx, 404, OccupantInput{AllotteeName: "Ali"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий дом: %v, ожидали ErrNotFound", err)
	}
	if _, err := env.allotments.CreateAllotment(ctx, h.ID, OccupantInput{}); !errors.Is(err, ErrValidation) {
		t.Errorf("без имени: %v, ожидали ErrValidation", err)
	}
	if _, err := env.allotments.CreateAllotment(ctx, h.ID, OccupantInput{AllotteeName: "Ali", AllotteeStatus: "dead"}); !errors.Is(err, ErrValidation) {
		t.Errorf("недопустимый статус жильца: %v, ожидали ErrValidation", err)
	}

	env.mustAllot(t, h.ID, "Ali")
	if _, err := env.allotments.CreateAllotment(ctx, h.ID, OccupantInput{AllotteeName: "Bilal"}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("второй активный аллотмент: %v, ожидали ErrInvalidState", err)
	}
}

// Повторное завершение возвращает то же состояние без второго примечания.
func TestEndAllotment_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.mustHouse(t, "F-1")
	a, err := env.allotments.CreateAllotment(ctx, h.ID, OccupantInput{AllotteeName: "Ali", Notes: "initial"})
	if err != nil {
		t.Fatalf("CreateAllotment() ошибка: %v", err)
	}

	first, err := env.allotments.EndAllotment(ctx, a.ID, nil, "transferred")
	if err != nil {
		t.Fatalf("первый EndAllotment() ошибка: %v", err)
	}
	if first.Notes != "initial\ntransferred" {
		t.Errorf("notes = %q", first.Notes)
	}
	if first.VacationDate == nil || !first.VacationDate.Equal(today()) {
		t.Errorf("vacation_date = %v, ожидали сегодня", first.VacationDate)
	}

	second, err := env.allotments.EndAllotment(ctx, a.ID, datePtr(2020, 5, 5), "again")
	if err != nil {
		t.Fatalf("второй EndAllotment() ошибка: %v", err)
	}
	if second.Notes != first.Notes || !second.VacationDate.Equal(*first.VacationDate) {
		t.Errorf("второй вызов изменил состояние: %+v", second)
	}
	if strings.Count(second.Notes, "transferred") != 1 {
		t.Errorf("примечание продублировано: %q", second.Notes)
	}

	if _, err := env.allotments.EndAllotment(ctx, 404, nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий аллотмент: %v, ожидали ErrNotFound", err)
	}
}

func TestUpdateAllotment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.mustHouse(t, "F-1")
	a := env.mustAllot(t, h.ID, "Ali")

	updated, err := env.allotments.UpdateAllotment(ctx, a.ID, AllotmentUpdate{
		Designation:    strPtr("Director"),
		AllotteeStatus: strPtr(model.AllotteeRetired),
		Notes:          strPtr("replaced"),
		OccupationDate: datePtr(2023, 3, 1),
	})
	if err != nil {
		t.Fatalf("UpdateAllotment() ошибка: %v", err)
	}
	if updated.Designation != "Director" || updated.AllotteeStatus != model.AllotteeRetired || updated.Notes != "replaced" {
		t.Errorf("аллотмент = %+v", updated)
	}
	if updated.QtrStatus != model.QtrActive {
		t.Errorf("qtr_status = %s, обновление не должно менять состояние", updated.QtrStatus)
	}
	if got := env.houseStatus(t, h.ID); got != model.HouseOccupied {
		t.Errorf("статус дома = %s, ожидали occupied", got)
	}

	if _, err := env.allotments.UpdateAllotment(ctx, a.ID, AllotmentUpdate{AllotteeName: strPtr(" ")}); !errors.Is(err, ErrValidation) {
		t.Errorf("пустое имя: %v, ожидали ErrValidation", err)
	}
}

func TestListAllotments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h1 := env.mustHouse(t, "F-1")
	h2 := env.mustHouse(t, "F-2")

	old := env.mustAllot(t, h1.ID, "Ali")
	if _, err := env.allotments.EndAllotment(ctx, old.ID, nil, ""); err != nil {
		t.Fatalf("EndAllotment() ошибка: %v", err)
	}
	cur := env.mustAllot(t, h1.ID, "Bilal")
	env.mustAllot(t, h2.ID, "Chand")

	items, total, err := env.allotments.ListAllotments(ctx, repository.AllotmentFilter{HouseID: &h1.ID})
	if err != nil {
		t.Fatalf("ListAllotments() ошибка: %v", err)
	}
	if total != 2 || items[0].ID != cur.ID {
		t.Errorf("ListAllotments(дом) = %d, первый %d, ожидали 2 и %d", total, items[0].ID, cur.ID)
	}

	_, total, err = env.allotments.ListAllotments(ctx, repository.AllotmentFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListAllotments() ошибка: %v", err)
	}
	if total != 2 {
		t.Errorf("активных = %d, ожидали 2", total)
	}
}

// Статус не ручного дома совпадает с состоянием последнего аллотмента.
func TestStatusFollowsLatestAllotment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	h := env.mustHouse(t, "F-1")

	for i := 0; i < 3; i++ {
		a := env.mustAllot(t, h.ID, "Ali")
		if got := env.houseStatus(t, h.ID); got != model.HouseOccupied {
			t.Fatalf("итерация %d: %s после заселения", i, got)
		}
		if _, err := env.allotments.EndAllotment(ctx, a.ID, nil, ""); err != nil {
			t.Fatalf("EndAllotment() ошибка: %v", err)
		}
		if got := env.houseStatus(t, h.ID); got != model.HouseVacant {
			t.Fatalf("итерация %d: %s после завершения", i, got)
		}
	}
}

func TestRecomputeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	free := env.mustHouse(t, "F-1")
	busy := env.mustHouse(t, "F-2")
	env.mustAllot(t, busy.ID, "Ali")

	// Рассогласование, внесённое в обход сервиса
	repos := env.store.Repos()
	if err := repos.Houses.UpdateStatus(ctx, free.ID, model.HouseOccupied); err != nil {
		t.Fatal(err)
	}
	if err := repos.Houses.UpdateStatus(ctx, busy.ID, model.HouseVacant); err != nil {
		t.Fatal(err)
	}

	res, err := env.status.RecomputeAll(ctx)
	if err != nil {
		t.Fatalf("RecomputeAll() ошибка: %v", err)
	}
	if res.Checked != 2 || res.Changed != 2 {
		t.Errorf("RecomputeAll() = %+v, ожидали 2/2", res)
	}
	if env.houseStatus(t, free.ID) != model.HouseVacant || env.houseStatus(t, busy.ID) != model.HouseOccupied {
		t.Error("статусы не восстановлены")
	}

	if _, err := env.status.RecomputeHouse(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecomputeHouse() несуществующего = %v, ожидали ErrNotFound", err)
	}
}
