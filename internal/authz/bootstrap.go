package authz

import (
	"fmt"

	"github.com/Bmariten/afripulse-v2-sub001/internal/constants"
)

// roleBuyer 下单能力的公共父角色，不直接分配给账号
const roleBuyer = "buyer"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: roleBuyer,
			Policies: []Policy{
				{Object: "/me", Action: "GET"},
				{Object: "/cart", Action: "GET"},
				{Object: "/cart", Action: "DELETE"},
				{Object: "/cart/items", Action: "POST"},
				{Object: "/cart/items/:product_id", Action: "PATCH"},
				{Object: "/cart/items/:product_id", Action: "DELETE"},
				{Object: "/checkout", Action: "POST"},
				{Object: "/orders", Action: "GET"},
				{Object: "/orders/:id", Action: "GET"},
				{Object: "/orders/:id/cancel", Action: "POST"},
			},
		},
		{
			Role:     constants.RoleCustomer,
			Inherits: []string{roleBuyer},
		},
		{
			Role:     constants.RoleSeller,
			Inherits: []string{roleBuyer},
			Policies: []Policy{
				{Object: "/seller/*", Action: "*"},
			},
		},
		{
			Role:     constants.RoleAffiliate,
			Inherits: []string{roleBuyer},
			Policies: []Policy{
				{Object: "/affiliate/*", Action: "*"},
			},
		},
		{
			Role: constants.RoleAdmin,
			Policies: []Policy{
				{Object: "/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
