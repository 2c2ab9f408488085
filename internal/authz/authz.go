// Package authz 实现基于角色的访问控制判定。
//
// Authorize 是一个纯函数：除返回值外没有任何副作用，便于在
// 中间件与单元测试中复用。
package authz

import (
	"errors"

	"github.com/kajrofficep/cafeteria/internal/model"
)

var (
	// ErrUnauthenticated 表示请求没有已认证的用户身份。
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden 表示用户角色不满足操作要求。
	ErrForbidden = errors.New("forbidden")
)

// Authorize 判定 actor 是否可以执行要求 required 角色的操作。
//
// actor 为 nil 表示匿名请求，返回 ErrUnauthenticated；
// 角色不匹配返回 ErrForbidden；满足要求返回 nil。
func Authorize(actor *model.User, required model.Role) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.Role != required {
		return ErrForbidden
	}
	return nil
}

// AuthorizeRole 与 Authorize 相同，但直接接受角色值。
// 供只在请求上下文中携带角色（而非完整用户）的调用方使用。
func AuthorizeRole(actorRole model.Role, authenticated bool, required model.Role) error {
	if !authenticated {
		return ErrUnauthenticated
	}
	if actorRole != required {
		return ErrForbidden
	}
	return nil
}
