package rbac

import (
	"slices"
	"testing"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		name string
		role string
		want string
	}{
		{name: "admin", role: "admin", want: RoleAdmin},
		{name: "manager", role: "manager", want: RoleManager},
		{name: "viewer", role: "viewer", want: RoleViewer},
		{name: "operator — альтернативное имя manager", role: "operator", want: RoleManager},
		{name: "регистр и пробелы", role: "  Admin ", want: RoleAdmin},
		{name: "пустая роль -> viewer", role: "", want: RoleViewer},
		{name: "неизвестная роль -> viewer", role: "superadmin", want: RoleViewer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRole(tt.role); got != tt.want {
				t.Errorf("NormalizeRole(%q) = %q, хотели %q", tt.role, got, tt.want)
			}
		})
	}
}

func TestPermissions(t *testing.T) {
	admin := Permissions(RoleAdmin)
	if !slices.Equal(admin, Catalog) {
		t.Errorf("Permissions(admin) = %v, хотели весь каталог", admin)
	}

	manager := Permissions(RoleManager)
	if slices.Contains(manager, PermUsersManage) {
		t.Error("manager не должен иметь users:manage")
	}
	if !slices.Contains(manager, PermFilesWrite) {
		t.Error("manager должен иметь files:write")
	}

	for _, p := range Permissions("") {
		if p != PermHousesRead && p != PermAllotmentsRead && p != PermFilesRead && p != PermWaitingRead {
			t.Errorf("пустая роль получила право записи %q", p)
		}
	}
}

func TestPermissions_ReturnsCopy(t *testing.T) {
	perms := Permissions(RoleViewer)
	perms[0] = PermUsersManage

	if HasAll(RoleViewer, PermUsersManage) {
		t.Fatal("изменение возвращённого среза повлияло на таблицу ролей")
	}
}

func TestPermissions_SubsetOfCatalog(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleManager, RoleViewer, "operator", "unknown"} {
		for _, p := range Permissions(role) {
			if !slices.Contains(Catalog, p) {
				t.Errorf("роль %q: право %q отсутствует в каталоге", role, p)
			}
		}
	}
}

func TestHasAll(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		required []string
		want     bool
	}{
		{name: "без требований", role: RoleViewer, required: nil, want: true},
		{name: "viewer читает дома", role: RoleViewer, required: []string{PermHousesRead}, want: true},
		{name: "viewer не пишет дома", role: RoleViewer, required: []string{PermHousesWrite}, want: false},
		{name: "manager пишет дела", role: RoleManager, required: []string{PermFilesRead, PermFilesWrite}, want: true},
		{name: "manager не управляет пользователями", role: RoleManager, required: []string{PermUsersManage}, want: false},
		{name: "operator = manager", role: "operator", required: []string{PermWaitingWrite}, want: true},
		{name: "admin всё", role: RoleAdmin, required: Catalog, want: true},
		{name: "неизвестная роль не пишет", role: "ghost", required: []string{PermAllotmentsWrite}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAll(tt.role, tt.required...); got != tt.want {
				t.Errorf("HasAll(%q, %v) = %v, хотели %v", tt.role, tt.required, got, tt.want)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	got := Missing(RoleViewer, PermHousesRead, PermHousesWrite, PermUsersManage)
	want := []string{PermHousesWrite, PermUsersManage}
	if !slices.Equal(got, want) {
		t.Errorf("Missing() = %v, хотели %v", got, want)
	}
}

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleManager, true},
		{RoleViewer, true},
		{"operator", true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := IsValidRole(tt.role); got != tt.want {
				t.Errorf("IsValidRole(%q) = %v, хотели %v", tt.role, got, tt.want)
			}
		})
	}
}
