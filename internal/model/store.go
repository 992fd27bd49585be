package model

// Store is a physical sales location. Each store owns zero or more
// InventoryRecords.
type Store struct {
	BaseModel
	Code     string `gorm:"type:varchar(20);uniqueIndex;not null" json:"code" validate:"required"`
	Name     string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Address  string `gorm:"type:text" json:"address"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}
