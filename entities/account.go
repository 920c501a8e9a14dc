package entities

import (
	"github.com/google/uuid"
	"time"
)

type Account struct {
	ID                 uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PrimaryOwnerUserId uuid.UUID `json:"primary_owner_user_id" gorm:"type:uuid;not null;index:idx_accounts_owner"`
	IsPersonalAccount  bool      `json:"is_personal_account" gorm:"not null;default:true"`
	Name               string    `json:"name" gorm:"type:varchar(255)"`
	CreatedAt          time.Time `json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}
