package models

import (
	"fmt"
	"strconv"
)

// Category groups habits. Order may be null on the server.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order *int   `json:"order"`
}

// SortOrder returns the explicit order, treating null as 0.
func (c Category) SortOrder() int {
	if c.Order == nil {
		return 0
	}
	return *c.Order
}

// CategoryRequest is the body used to create or rename a category
type CategoryRequest struct {
	Name  string `json:"name,omitempty"`
	Order *int   `json:"order,omitempty"`
}

// LayoutEntry is one position in a category layout submission
type LayoutEntry struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

// LayoutRequest is the body of categories/update_layout/
type LayoutRequest struct {
	Layout []LayoutEntry `json:"layout"`
}

// Tag labels habits across categories
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagRequest is the body used to create a tag
type TagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagPatch is a partial tag update. Nil fields are left untouched.
type TagPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// FormatID renders a server identifier as an order key.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses an order key or command argument into a server identifier.
func ParseID(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", key)
	}
	return id, nil
}
