package models

import "time"

// District is an organizational unit a personnel record can belong to or move to.
type District struct {
	Code         string    `gorm:"primaryKey;column:code;type:varchar(32)" json:"code"`
	Name         string    `gorm:"column:name;type:varchar(191);not null" json:"name"`
	ProvinceCode string    `gorm:"column:province_code;type:varchar(32);index;not null" json:"province_code"`
	ProvinceName string    `gorm:"column:province_name;type:varchar(191)" json:"province_name"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (District) TableName() string {
	return "districts"
}
