package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerGroup is a named segment (wholesale, vip) used only as a join key
// between a caller's memberships and group-scoped price lists.
type CustomerGroup struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
