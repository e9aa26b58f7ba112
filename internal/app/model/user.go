package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

type User struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Password string          `json:"-"`
	Role     Role            `json:"role"`
	Balance  decimal.Decimal `json:"-"`
}
