package models

import "time"

// Goal is the canonical goal record (PostgreSQL). Only the fields the social
// layer reads are mapped here.
type Goal struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"index"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	IsPublic    bool       `json:"is_public"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GoalSummary is the display subset merged onto feed items.
type GoalSummary struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ToSummary returns the display subset of the goal.
func (g *Goal) ToSummary() GoalSummary {
	return GoalSummary{
		ID:          g.ID,
		Title:       g.Title,
		Category:    g.Category,
		IsCompleted: g.CompletedAt != nil,
		CompletedAt: g.CompletedAt,
	}
}

// Achievement is a catalog entry (PostgreSQL). Seeding lives elsewhere.
type Achievement struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Points      int    `json:"points"`
}
