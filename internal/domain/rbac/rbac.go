// Пакет rbac — справочник ролей и прав доступа.
// Права полностью определяются ролью: таблица роль → набор прав
// неизменяема, индивидуальные права пользователя не хранятся.
// Неизвестная или пустая роль трактуется как самая ограниченная (viewer).
package rbac

import "strings"

// Роли в порядке возрастания привилегий.
const (
	RoleViewer  = "viewer"
	RoleManager = "manager"
	RoleAdmin   = "admin"

	// roleOperator — название роли manager в альтернативной схеме.
	roleOperator = "operator"
)

// Права доступа.
const (
	PermHousesRead      = "houses:read"
	PermHousesWrite     = "houses:write"
	PermAllotmentsRead  = "allotments:read"
	PermAllotmentsWrite = "allotments:write"
	PermFilesRead       = "files:read"
	PermFilesWrite      = "files:write"
	PermWaitingRead     = "waiting:read"
	PermWaitingWrite    = "waiting:write"
	PermUsersManage     = "users:manage"
)

// Catalog — полный каталог прав в порядке вывода.
var Catalog = []string{
	PermHousesRead, PermHousesWrite,
	PermAllotmentsRead, PermAllotmentsWrite,
	PermFilesRead, PermFilesWrite,
	PermWaitingRead, PermWaitingWrite,
	PermUsersManage,
}

var readOnly = []string{PermHousesRead, PermAllotmentsRead, PermFilesRead, PermWaitingRead}

// rolePermissions — таблица роль → права.
var rolePermissions = map[string][]string{
	RoleViewer: readOnly,
	RoleManager: {
		PermHousesRead, PermHousesWrite,
		PermAllotmentsRead, PermAllotmentsWrite,
		PermFilesRead, PermFilesWrite,
		PermWaitingRead, PermWaitingWrite,
	},
	RoleAdmin: Catalog,
}

// NormalizeRole приводит роль к канонической форме.
// operator → manager, неизвестная или пустая роль → viewer.
func NormalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == roleOperator {
		return RoleManager
	}
	if _, ok := rolePermissions[r]; !ok {
		return RoleViewer
	}
	return r
}

// Permissions возвращает копию набора прав для роли.
func Permissions(role string) []string {
	perms := rolePermissions[NormalizeRole(role)]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasAll проверяет, что required является подмножеством прав роли.
func HasAll(role string, required ...string) bool {
	granted := toSet(rolePermissions[NormalizeRole(role)])
	for _, p := range required {
		if !granted[p] {
			return false
		}
	}
	return true
}

// Missing возвращает права из required, которых нет у роли.
func Missing(role string, required ...string) []string {
	granted := toSet(rolePermissions[NormalizeRole(role)])
	var missing []string
	for _, p := range required {
		if !granted[p] {
			missing = append(missing, p)
		}
	}
	return missing
}

// IsValidRole проверяет, является ли строка допустимой ролью
// (включая альтернативное название operator).
func IsValidRole(role string) bool {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == roleOperator {
		return true
	}
	_, ok := rolePermissions[r]
	return ok
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
