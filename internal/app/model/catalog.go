package model

import (
	"time"

	"gorm.io/gorm"
)

type Section struct {
	ID           uint           `gorm:"primarykey" json:"id"`                // section ID
	Name         string         `gorm:"not null" json:"name"`                // display name
	Description  *string        `gorm:"type:text" json:"description"`        // optional blurb
	Icon         *string        `json:"icon"`                                // icon key or URL
	DisplayOrder int            `gorm:"not null;index" json:"display_order"` // ascending, ties by name
	IsActive     bool           `gorm:"not null" json:"is_active"`           // shown on the storefront
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Categories []Category `gorm:"foreignKey:SectionID" json:"categories,omitempty"`
}

func (Section) TableName() string {
	return "sections"
}

type Category struct {
	ID           uint           `gorm:"primarykey" json:"id"`                // category ID
	SectionID    *uint          `gorm:"index" json:"section_id"`             // weak reference, null once the section is deleted
	Name         string         `gorm:"not null" json:"name"`                // display name
	Description  *string        `gorm:"type:text" json:"description"`        // optional blurb
	Icon         *string        `json:"icon"`                                // icon key or URL
	DisplayOrder int            `gorm:"not null;index" json:"display_order"` // ascending, ties by name
	IsActive     bool           `gorm:"not null" json:"is_active"`           // shown on the storefront
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Section      *Section              `gorm:"foreignKey:SectionID" json:"section,omitempty"`
	ColorOptions []CategoryColorOption `gorm:"foreignKey:CategoryID" json:"color_options,omitempty"`
	SizeOptions  []CategorySizeOption  `gorm:"foreignKey:CategoryID" json:"size_options,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoryColorOption is suggestion data for variant creation. It is never
// authoritative over existing variants.
type CategoryColorOption struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CategoryID   uint      `gorm:"not null;index" json:"category_id"`
	Value        string    `gorm:"not null" json:"value"`
	HexCode      *string   `gorm:"type:varchar(9)" json:"hex_code"`
	DisplayOrder int       `gorm:"not null" json:"display_order"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CategoryColorOption) TableName() string {
	return "category_color_options"
}

type CategorySizeOption struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CategoryID   uint      `gorm:"not null;index" json:"category_id"`
	Value        string    `gorm:"not null" json:"value"`
	Unit         *string   `gorm:"type:varchar(20)" json:"unit"` // e.g. "EU", "cm"
	DisplayOrder int       `gorm:"not null" json:"display_order"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CategorySizeOption) TableName() string {
	return "category_size_options"
}
