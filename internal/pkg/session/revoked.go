// Package session 维护已注销令牌的撤销名单。
//
// 登录签发的 JWT 是无状态的；注销时把令牌的 JTI 写入 Redis，
// TTL 对齐令牌剩余有效期，中间件据此拒绝已注销的令牌。
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cafeteria:session:revoked:"

// RevocationList 是基于 Redis 的令牌撤销名单。
type RevocationList struct {
	rdb *redis.Client
}

// NewRevocationList 创建撤销名单。
func NewRevocationList(rdb *redis.Client) *RevocationList {
	return &RevocationList{rdb: rdb}
}

// Revoke 撤销 jti 对应的令牌，ttl 为令牌剩余有效期。
func (l *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if l == nil || l.rdb == nil || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil // 令牌已过期，无需记录
	}
	if err := l.rdb.Set(ctx, keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked 判断 jti 对应的令牌是否已被撤销。
func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if l == nil || l.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := l.rdb.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
