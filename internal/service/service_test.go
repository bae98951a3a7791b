package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fazalktk93/accommodation-sub000/internal/auth"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/lock"
	"github.com/fazalktk93/accommodation-sub000/internal/repository/memory"
)

// testEnv — набор сервисов поверх хранилища в памяти.
type testEnv struct {
	store      *memory.Store
	status     *StatusService
	houses     *HouseService
	allotments *AllotmentService
	custody    *CustodyService
	waiting    *WaitingListService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLocker(t, lock.NewKeyedMutex(5*time.Second))
}

func newTestEnvWithLocker(t *testing.T, locker lock.Locker) *testEnv {
	t.Helper()
	store := memory.New()
	logger := testLogger()

	status := NewStatusService(store, locker, logger)
	allotments := NewAllotmentService(store, locker, status, logger)
	return &testEnv{
		store:      store,
		status:     status,
		houses:     NewHouseService(store, locker, status, logger),
		allotments: allotments,
		custody:    NewCustodyService(store, locker, logger),
		waiting:    NewWaitingListService(store, locker, allotments, logger),
	}
}

// mustHouse создаёт свободный дом.
func (e *testEnv) mustHouse(t *testing.T, fileNo string) *model.House {
	t.Helper()
	h, err := e.houses.CreateHouse(context.Background(), HouseInput{
		FileNo: fileNo, QtrNo: "12", Street: "5", Sector: "G-6", TypeCode: "C",
	})
	if err != nil {
		t.Fatalf("CreateHouse(%s) ошибка: %v", fileNo, err)
	}
	return h
}

// mustAllot заселяет дом.
func (e *testEnv) mustAllot(t *testing.T, houseID int64, name string) *model.Allotment {
	t.Helper()
	a, err := e.allotments.CreateAllotment(context.Background(), houseID, OccupantInput{AllotteeName: name})
	if err != nil {
		t.Fatalf("CreateAllotment(%d) ошибка: %v", houseID, err)
	}
	return a
}

// houseStatus возвращает текущий статус дома.
func (e *testEnv) houseStatus(t *testing.T, id int64) string {
	t.Helper()
	h, err := e.houses.GetHouse(context.Background(), id)
	if err != nil {
		t.Fatalf("GetHouse(%d) ошибка: %v", id, err)
	}
	return h.Status
}

// newTestIdentity создаёт IdentityService с ключом, сгенерированным для теста.
func newTestIdentity(t *testing.T, store *memory.Store) *IdentityService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("генерация ключа: %v", err)
	}
	tokens, err := auth.NewTokenManager(key, auth.TokenOptions{
		KeyID:  "test",
		Issuer: "accommodation",
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenManager() ошибка: %v", err)
	}
	return NewIdentityService(store, tokens, auth.NewPasswordHasher(bcrypt.MinCost), 100, time.Minute, testLogger())
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
