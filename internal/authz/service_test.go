package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func mustEnforceRole(t *testing.T, svc *Service, role, obj, act string) bool {
	t.Helper()
	allow, err := svc.EnforceRole(role, obj, act)
	if err != nil {
		t.Fatalf("enforce %s %s %s failed: %v", role, act, obj, err)
	}
	return allow
}

func TestBuiltinRoleMatrix(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复初始化不应报错
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles twice failed: %v", err)
	}

	cases := []struct {
		role  string
		obj   string
		act   string
		allow bool
	}{
		{"customer", "/api/v1/cart/items", "POST", true},
		{"customer", "/api/v1/cart/items/12", "patch", true},
		{"customer", "/api/v1/checkout", "POST", true},
		{"customer", "/api/v1/orders/7/cancel", "POST", true},
		{"customer", "/api/v1/seller/products", "GET", false},
		{"customer", "/api/v1/admin/orders", "GET", false},
		{"seller", "/api/v1/seller/products/3/images", "POST", true},
		{"seller", "/api/v1/checkout", "POST", true},
		{"seller", "/api/v1/affiliate/links", "GET", false},
		{"affiliate", "/api/v1/affiliate/links", "POST", true},
		{"affiliate", "/api/v1/orders", "GET", true},
		{"affiliate", "/api/v1/admin/products", "GET", false},
		{"admin", "/api/v1/admin/products/9/moderation", "PATCH", true},
		{"admin", "/api/v1/seller/products", "GET", true},
	}
	for _, tc := range cases {
		if got := mustEnforceRole(t, svc, tc.role, tc.obj, tc.act); got != tc.allow {
			t.Fatalf("%s %s %s: want allow=%v got %v", tc.role, tc.act, tc.obj, tc.allow, got)
		}
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	want := map[string]bool{
		"role:buyer":     true,
		"role:customer":  true,
		"role:seller":    true,
		"role:affiliate": true,
		"role:admin":     true,
	}
	for _, role := range roles {
		delete(want, role)
	}
	if len(want) != 0 {
		t.Fatalf("builtin roles missing: %v", want)
	}
}

func TestGrantAndRevokeRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("support", "/admin/orders/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if !mustEnforceRole(t, svc, "support", "/api/v1/admin/orders/42", "get") {
		t.Fatalf("expected allow after grant")
	}
	if mustEnforceRole(t, svc, "support", "/api/v1/admin/orders/42", "POST") {
		t.Fatalf("expected other action denied")
	}

	policies, err := svc.GetRolePolicies("role:support")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	if len(policies) != 1 || policies[0].Object != "/admin/orders/:id" || policies[0].Action != "GET" {
		t.Fatalf("unexpected policies: %+v", policies)
	}

	if err := svc.RevokeRolePolicy("support", "/api/v1/admin/orders/:id", "GET"); err != nil {
		t.Fatalf("revoke role policy failed: %v", err)
	}
	if mustEnforceRole(t, svc, "support", "/api/v1/admin/orders/42", "GET") {
		t.Fatalf("expected deny after revoke")
	}
	if err := svc.GrantRolePolicy("support", "/admin/orders", " "); err == nil {
		t.Fatalf("expected empty action rejected")
	}
}

func TestGetRolePoliciesIncludesInherited(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	policies, err := svc.GetRolePolicies("seller")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	var hasOwn, hasInherited bool
	for _, policy := range policies {
		if policy.Subject == "role:seller" && policy.Object == "/seller/*" {
			hasOwn = true
		}
		if policy.Subject == "role:buyer" && policy.Object == "/checkout" {
			hasInherited = true
		}
	}
	if !hasOwn || !hasInherited {
		t.Fatalf("expected own and inherited policies, got %+v", policies)
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/orders/:id", want: "/admin/orders/:id"},
		{in: "/admin/orders/:id", want: "/admin/orders/:id"},
		{in: "admin/orders", want: "/admin/orders"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestNormalizeRole(t *testing.T) {
	got, err := NormalizeRole(" Seller ")
	if err != nil || got != "role:seller" {
		t.Fatalf("unexpected normalize result %q err=%v", got, err)
	}
	if _, err := NormalizeRole("role:"); err == nil {
		t.Fatalf("expected empty role rejected")
	}
}
