// routes.go — таблица маршрутов HTTP API и требуемые права.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fazalktk93/accommodation-sub000/internal/api/middleware"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/rbac"
)

// APIPrefix — префикс версии REST API.
const APIPrefix = "/api/v1"

// Register регистрирует все маршруты на router.
// Health, metrics, JWKS и вход — публичные; остальное требует токен.
func (h *APIHandler) Register(router chi.Router, auth *middleware.Auth) {
	// Публичные endpoints
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)
	router.Get("/.well-known/jwks.json", h.JWKS)

	router.Route(APIPrefix, func(api chi.Router) {
		api.Post("/auth/login", h.Login)

		api.Group(func(p chi.Router) {
			p.Use(auth.Middleware())

			p.Get("/auth/me", h.Me)

			// Реестр домов
			p.With(perm(rbac.PermHousesRead)).Get("/houses", h.ListHouses)
			p.With(perm(rbac.PermHousesWrite)).Post("/houses", h.CreateHouse)
			p.With(perm(rbac.PermHousesRead)).Get("/houses/export", h.ExportHouses)
			p.With(perm(rbac.PermHousesWrite)).Post("/houses/import", h.ImportHouses)
			p.With(perm(rbac.PermHousesWrite)).Post("/houses/recompute-status", h.RecomputeAllStatuses)
			p.With(perm(rbac.PermHousesRead)).Get("/houses/by-file-no/{fileNo}", h.GetHouseByFileNo)
			p.With(perm(rbac.PermHousesRead)).Get("/houses/{id}", h.GetHouse)
			p.With(perm(rbac.PermHousesWrite)).Patch("/houses/{id}", h.UpdateHouse)
			p.With(perm(rbac.PermHousesWrite)).Delete("/houses/{id}", h.DeleteHouse)
			p.With(perm(rbac.PermHousesWrite)).Post("/houses/{id}/recompute-status", h.RecomputeHouseStatus)
			p.With(perm(rbac.PermFilesRead)).Get("/houses/{id}/open-movement", h.GetOpenMovement)

			// Журнал аллотментов
			p.With(perm(rbac.PermAllotmentsRead)).Get("/allotments", h.ListAllotments)
			p.With(perm(rbac.PermAllotmentsWrite)).Post("/allotments", h.CreateAllotment)
			p.With(perm(rbac.PermAllotmentsRead)).Get("/allotments/{id}", h.GetAllotment)
			p.With(perm(rbac.PermAllotmentsWrite)).Patch("/allotments/{id}", h.UpdateAllotment)
			p.With(perm(rbac.PermAllotmentsWrite)).Post("/allotments/{id}/end", h.EndAllotment)
			p.With(perm(rbac.PermAllotmentsWrite)).Post("/allotments/{id}/release", h.ReleaseAllotment)

			// Движение дел
			p.With(perm(rbac.PermFilesWrite)).Post("/files/issue", h.IssueFile)
			p.With(perm(rbac.PermFilesWrite)).Post("/files/movements/{id}/receive", h.ReceiveFile)
			p.With(perm(rbac.PermFilesRead)).Get("/files/movements", h.ListMovements)
			p.With(perm(rbac.PermFilesRead)).Get("/files/open", h.ListOpenMovements)

			// Лист ожидания
			p.With(perm(rbac.PermWaitingRead)).Get("/bps", h.ListBps)
			p.With(perm(rbac.PermWaitingWrite)).Post("/bps", h.CreateBps)
			p.With(perm(rbac.PermWaitingWrite)).Post("/employees", h.CreateEmployee)
			p.With(perm(rbac.PermWaitingRead)).Get("/employees/{id}", h.GetEmployee)
			p.With(perm(rbac.PermWaitingWrite)).Post("/applications", h.SubmitApplication)
			p.With(perm(rbac.PermWaitingRead)).Get("/applications/{id}", h.GetApplication)
			p.With(perm(rbac.PermWaitingWrite)).Post("/applications/{id}/approve", h.ApproveApplication)
			p.With(perm(rbac.PermWaitingWrite)).Post("/applications/{id}/reject", h.RejectApplication)
			p.With(perm(rbac.PermWaitingRead)).Get("/waiting-list", h.ListWaiting)
			p.With(perm(rbac.PermWaitingRead)).Get("/waiting-list/export", h.ExportWaiting)
			p.With(perm(rbac.PermWaitingWrite, rbac.PermAllotmentsWrite)).Post("/waiting-list/{id}/assign", h.AssignHouse)

			// Пользователи
			p.Route("/users", func(u chi.Router) {
				u.Use(perm(rbac.PermUsersManage))
				u.Get("/", h.ListUsers)
				u.Post("/", h.CreateUser)
				u.Get("/{id}", h.GetUser)
				u.Patch("/{id}", h.UpdateUser)
				u.Put("/{id}/password", h.SetPassword)
			})
		})
	})
}

// perm — сокращение для middleware.RequirePermission.
func perm(perms ...string) func(http.Handler) http.Handler {
	return middleware.RequirePermission(perms...)
}
