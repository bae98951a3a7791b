package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

func strPtr(s string) *string { return &s }

func newHouse(t *testing.T, s *Store, fileNo, sector string) *model.House {
	t.Helper()
	h := &model.House{FileNo: fileNo, Sector: sector, TypeCode: "B", Status: model.HouseVacant}
	if err := s.Repos().Houses.Create(context.Background(), h); err != nil {
		t.Fatalf("Houses.Create(%s) ошибка: %v", fileNo, err)
	}
	return h
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := s.RunInTx(ctx, func(r *repository.Repos) error {
		h := &model.House{FileNo: "F-1", TypeCode: "A", Status: model.HouseVacant}
		if err := r.Houses.Create(ctx, h); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("RunInTx() = %v, ожидали errBoom", err)
	}
	if _, err := s.Repos().Houses.GetByFileNo(ctx, "F-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("дом не откатился: %v", err)
	}

	err = s.RunInTx(ctx, func(r *repository.Repos) error {
		return r.Houses.Create(ctx, &model.House{FileNo: "F-2", TypeCode: "A", Status: model.HouseVacant})
	})
	if err != nil {
		t.Fatalf("RunInTx() ошибка: %v", err)
	}
	if _, err := s.Repos().Houses.GetByFileNo(ctx, "F-2"); err != nil {
		t.Errorf("дом не сохранён: %v", err)
	}
}

func TestRunInTx_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTx(ctx, func(*repository.Repos) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("RunInTx() = %v, called = %v", err, called)
	}
}

func TestHouses_UniqueAndHistoryGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	repos := s.Repos()
	h := newHouse(t, s, "F-100", "G-6")
	other := newHouse(t, s, "F-101", "G-6")

	if err := repos.Houses.Create(ctx, &model.House{FileNo: "F-100", TypeCode: "A"}); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("дубликат Create(): %v", err)
	}
	other.FileNo = "F-100"
	if err := repos.Houses.Update(ctx, other); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("дубликат Update(): %v", err)
	}

	a := &model.Allotment{HouseID: h.ID, AllotteeName: "A", QtrStatus: model.QtrActive, AllotteeStatus: model.AllotteeInService}
	if err := repos.Allotments.Create(ctx, a); err != nil {
		t.Fatalf("Allotments.Create() ошибка: %v", err)
	}
	m := &model.FileMovement{HouseID: h.ID, Movement: model.MovementIssue, ToWhom: "Dept A"}
	if err := repos.Movements.Insert(ctx, m); err != nil {
		t.Fatalf("Movements.Insert() ошибка: %v", err)
	}
	if err := repos.Movements.Open(ctx, h.ID, m.ID); err != nil {
		t.Fatalf("Movements.Open() ошибка: %v", err)
	}

	if err := repos.Houses.Delete(ctx, h.ID); !errors.Is(err, repository.ErrReferenced) {
		t.Fatalf("Delete() дома с историей: ожидали ErrReferenced, получили %v", err)
	}
	if _, err := repos.Allotments.GetByID(ctx, a.ID); err != nil {
		t.Errorf("аллотмент удалён вместе с домом: %v", err)
	}
	if _, total, _ := repos.Movements.List(ctx, &h.ID, 0, 0); total != 1 {
		t.Errorf("записей журнала %d, ожидали 1", total)
	}
	if _, total, _ := repos.Movements.ListOpen(ctx, 0, 0); total != 1 {
		t.Errorf("открытых выдач %d, ожидали 1", total)
	}

	if err := repos.Houses.Delete(ctx, other.ID); err != nil {
		t.Fatalf("Delete() дома без истории: %v", err)
	}
	if _, err := repos.Houses.GetByID(ctx, other.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByID() после удаления: %v", err)
	}
}

func TestHouses_ListFilterSortPage(t *testing.T) {
	s := New()
	ctx := context.Background()
	newHouse(t, s, "F-3", "G-6")
	newHouse(t, s, "F-1", "G-7")
	newHouse(t, s, "F-2", "G-6")

	tests := []struct {
		name   string
		filter repository.HouseFilter
		want   []string
		total  int
	}{
		{name: "по умолчанию file_no", filter: repository.HouseFilter{}, want: []string{"F-1", "F-2", "F-3"}, total: 3},
		{name: "по убыванию", filter: repository.HouseFilter{Desc: true}, want: []string{"F-3", "F-2", "F-1"}, total: 3},
		{name: "сектор", filter: repository.HouseFilter{Sector: strPtr("G-6")}, want: []string{"F-2", "F-3"}, total: 2},
		{name: "поиск", filter: repository.HouseFilter{Query: "g-7"}, want: []string{"F-1"}, total: 1},
		{name: "сортировка по id", filter: repository.HouseFilter{Sort: "id"}, want: []string{"F-3", "F-1", "F-2"}, total: 3},
		{name: "страница", filter: repository.HouseFilter{Limit: 1, Offset: 1}, want: []string{"F-2"}, total: 3},
		{name: "за пределами", filter: repository.HouseFilter{Offset: 10}, want: nil, total: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := s.Repos().Houses.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() ошибка: %v", err)
			}
			if total != tt.total {
				t.Errorf("total = %d, ожидали %d", total, tt.total)
			}
			var got []string
			for _, h := range items {
				got = append(got, h.FileNo)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, ожидали %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("List()[%d] = %s, ожидали %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAllotments_OneActivePerHouse(t *testing.T) {
	s := New()
	ctx := context.Background()
	repos := s.Repos()
	h := newHouse(t, s, "F-100", "G-6")

	first := &model.Allotment{HouseID: h.ID, AllotteeName: "A", QtrStatus: model.QtrActive}
	if err := repos.Allotments.Create(ctx, first); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	second := &model.Allotment{HouseID: h.ID, AllotteeName: "B", QtrStatus: model.QtrActive}
	if err := repos.Allotments.Create(ctx, second); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("второй активный: ожидали ErrConflict, получили %v", err)
	}
	if err := repos.Allotments.Create(ctx, &model.Allotment{HouseID: 42, QtrStatus: model.QtrEnded}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("несуществующий дом: %v", err)
	}

	first.QtrStatus = model.QtrEnded
	if err := repos.Allotments.Update(ctx, first); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if err := repos.Allotments.Create(ctx, second); err != nil {
		t.Fatalf("Create() после завершения: %v", err)
	}

	latest, err := repos.Allotments.Latest(ctx, h.ID)
	if err != nil || latest.ID != second.ID {
		t.Errorf("Latest() = %+v, %v", latest, err)
	}
	items, total, _ := repos.Allotments.List(ctx, repository.AllotmentFilter{HouseID: &h.ID})
	if total != 2 || items[0].ID != second.ID {
		t.Errorf("List() должен возвращать новые записи первыми")
	}
}

func TestMovements_CustodyAndOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return base }))
	ctx := context.Background()
	repos := s.Repos()
	h := newHouse(t, s, "F-100", "G-6")

	issue := &model.FileMovement{HouseID: h.ID, Movement: model.MovementIssue, ToWhom: "Dept A", MovedAt: base}
	_ = repos.Movements.Insert(ctx, issue)
	if err := repos.Movements.Open(ctx, h.ID, issue.ID); err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if err := repos.Movements.Open(ctx, h.ID, issue.ID+100); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("второй Open(): %v", err)
	}
	if open, _ := repos.Movements.IsOpen(ctx, issue.ID); !open {
		t.Error("IsOpen() = false")
	}

	// Одинаковое время: порядок по убыванию id
	receive := &model.FileMovement{HouseID: h.ID, Movement: model.MovementReceive, MovedAt: base, IssueID: &issue.ID}
	_ = repos.Movements.Insert(ctx, receive)
	if err := repos.Movements.Insert(ctx, &model.FileMovement{HouseID: h.ID, Movement: model.MovementReceive,
		IssueID: &issue.ID}); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("повторный receive: %v", err)
	}
	if err := repos.Movements.Close(ctx, issue.ID); err != nil {
		t.Fatalf("Close() ошибка: %v", err)
	}
	if err := repos.Movements.Close(ctx, issue.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("повторный Close(): %v", err)
	}

	items, total, _ := repos.Movements.List(ctx, &h.ID, 10, 0)
	if total != 2 || items[0].ID != receive.ID || items[0].FileNo != "F-100" {
		t.Errorf("List() = %+v", items)
	}
}

func TestWaiting_ListOrderAndJoin(t *testing.T) {
	s := New()
	ctx := context.Background()
	repos := s.Repos()

	bps := &model.Bps{Code: "BPS-17", Rank: 5}
	_ = repos.Bps.Create(ctx, bps)
	if err := repos.Bps.Create(ctx, &model.Bps{Code: "BPS-17", Rank: 1}); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("дубликат разряда: %v", err)
	}
	emp := &model.Employee{Name: "Ali", CNIC: "1", BpsID: bps.ID}
	if err := repos.Employees.Create(ctx, emp); err != nil {
		t.Fatalf("Employees.Create() ошибка: %v", err)
	}

	points := []int{0, 5, 0}
	priorities := []int{50001, 50001 + 10, 50000}
	var ids []int64
	for i := range points {
		app := &model.Application{EmployeeID: emp.ID, BpsID: bps.ID, Status: model.ApplicationApproved, PriorityPoints: points[i]}
		_ = repos.Applications.Create(ctx, app)
		w := &model.WaitingEntry{ApplicationID: app.ID, Priority: priorities[i], Rank: 5}
		if err := repos.WaitingList.Insert(ctx, w); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
		ids = append(ids, w.ID)
	}

	count, maxPriority, _ := repos.WaitingList.RankStats(ctx, 5)
	if count != 3 || maxPriority == nil || *maxPriority != 50011 {
		t.Errorf("RankStats() = %d, %v", count, maxPriority)
	}

	items, total, _ := repos.WaitingList.List(ctx, repository.WaitingFilter{Status: strPtr(model.ApplicationApproved)})
	if total != 3 {
		t.Fatalf("total = %d", total)
	}
	wantOrder := []int64{ids[2], ids[0], ids[1]}
	for i, w := range items {
		if w.ID != wantOrder[i] {
			t.Errorf("List()[%d].ID = %d, ожидали %d", i, w.ID, wantOrder[i])
		}
		if w.EmployeeName != "Ali" || w.BpsCode != "BPS-17" {
			t.Errorf("поля заявки не заполнены: %+v", w)
		}
	}

	if _, total, _ := repos.WaitingList.List(ctx, repository.WaitingFilter{Sector: strPtr("G-6")}); total != 0 {
		t.Errorf("фильтр по сектору: total = %d", total)
	}
}

func TestUsers_CopiesPermissions(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &model.User{Username: "admin", Role: "admin", Permissions: []string{"houses:read"}, IsActive: true}
	if err := s.Repos().Users.Create(ctx, u); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	u.Permissions[0] = "changed"

	got, err := s.Repos().Users.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername() ошибка: %v", err)
	}
	if got.Permissions[0] != "houses:read" {
		t.Errorf("права изменены через внешний срез: %v", got.Permissions)
	}
	if err := s.Repos().Users.Create(ctx, &model.User{Username: "admin"}); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("дубликат логина: %v", err)
	}
}
