package notifier

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type auditModel struct {
	ID        int64             `gorm:"type:bigserial;primaryKey"`
	ActorID   *uuid.UUID        `gorm:"type:uuid"`
	Action    string            `gorm:"type:text;not null"`
	Subject   string            `gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"type:timestamptz;not null;autoCreateTime"`
}

func (auditModel) TableName() string { return "audit_logs" }
