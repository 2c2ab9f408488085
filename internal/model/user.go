package model

import "time"

// Role 表示用户角色，取值为封闭枚举。
type Role string

const (
	RoleUser      Role = "user"      // 普通用户
	RoleModerator Role = "moderator" // 版主
	RoleAdmin     Role = "admin"     // 管理员
)

// ParseRole 解析角色字符串，非法取值返回 false。
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Valid 判断角色是否为合法枚举值。
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// User 表示系统用户。
type User struct {
	ID           uint      `gorm:"primaryKey"`                             // 用户 ID
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null"`  // 用户名（唯一）
	FullName     string    `gorm:"type:varchar(100);not null"`             // 姓名
	Department   string    `gorm:"type:varchar(50);not null"`              // 部门
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null"` // 邮箱（唯一）
	Phone        string    `gorm:"type:varchar(15);uniqueIndex;not null"`  // 电话（唯一）
	PasswordHash string    `gorm:"type:varchar(256);not null"`             // bcrypt 哈希
	Role         Role      `gorm:"type:varchar(16);default:user;not null"` // 角色: user / moderator / admin
	CreatedAt    time.Time // 创建时间

	Meals []Meal `gorm:"foreignKey:UserID"`
}
