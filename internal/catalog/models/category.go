package models

import (
	"strings"
	"time"

	"complyhub/internal/hierarchy"
	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// CompleteNameSeparator joins category names from the root down.
const CompleteNameSeparator = " / "

// Category is an organizational tree for standards. It takes no part in statistics.
type Category struct {
	ID           id.CategoryID      `json:"id"`
	Name         string             `json:"name"`
	CompleteName string             `json:"complete_name"`
	ParentID     id.CategoryID      `json:"parent_id,omitzero"`
	Sequence     int                `json:"sequence"`
	Position     hierarchy.Position `json:"position"`
	Active       bool               `json:"active"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func NewCategory(categoryID id.CategoryID, name string, parent id.CategoryID, now time.Time) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "category name cannot be empty")
	}
	return &Category{
		ID:           categoryID,
		Name:         name,
		CompleteName: name,
		ParentID:     parent,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Category) HierarchyNode() hierarchy.Node[id.CategoryID] {
	return hierarchy.Node[id.CategoryID]{ID: c.ID, Parent: c.ParentID, Sequence: c.Sequence}
}

// JoinCompleteName builds "Root / Child / Leaf" from names ordered root first.
func JoinCompleteName(names []string) string {
	return strings.Join(names, CompleteNameSeparator)
}

// Archive deactivates the category. Reports false when it was already archived.
func (c *Category) Archive(now time.Time) bool {
	if !c.Active {
		return false
	}
	c.Active = false
	c.UpdatedAt = now
	return true
}
