package models

import (
	"encoding/json"

	"github.com/julianstephens/habitual/internal/constants"
)

// CategoryRef is the category summary embedded in a habit
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// TagRef is the tag summary embedded in a habit
type TagRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// Habit is a tracked practice as reported by the server for a given date.
// The fields after TodayValue are client-only view state and never leave the process.
type Habit struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	MetricType constants.MetricType `json:"metric_type"`
	Unit       string               `json:"unit,omitempty"`
	MaxValue   *float64             `json:"max_value,omitempty"`
	Category   *CategoryRef         `json:"category,omitempty"`
	Tags       []TagRef             `json:"tags"`
	Archived   bool                 `json:"archived"`
	Icon       string               `json:"icon,omitempty"`
	Color      string               `json:"color,omitempty"`
	TodayValue float64              `json:"today_value"`

	TempValue        float64              `json:"-"`
	IsCompletedToday bool                 `json:"-"`
	IsSaving         bool                 `json:"-"`
	Status           constants.SyncStatus `json:"-"`
	StatusErr        error                `json:"-"`
}

// Annotate resets the derived view fields from the server-reported value.
func (h *Habit) Annotate() {
	h.TempValue = h.TodayValue
	h.IsCompletedToday = h.TodayValue > 0
	h.IsSaving = false
	h.Status = constants.StatusNone
	h.StatusErr = nil
}

// Uncategorized reports whether the habit has no category assigned.
func (h Habit) Uncategorized() bool {
	return h.Category == nil
}

// CategoryKey returns the category order key the habit belongs to.
func (h Habit) CategoryKey() string {
	if h.Category == nil {
		return constants.UncategorizedID
	}
	return FormatID(h.Category.ID)
}

// Step returns the value a quick toggle or increment would log, starting from the staged value.
// Boolean habits flip between 0 and 1 (a negative delta always clears); counters move by delta,
// floored at 0 and capped at MaxValue. Other metrics need an explicit value and report false.
func (h Habit) Step(delta float64) (float64, bool) {
	switch h.MetricType {
	case constants.MetricBoolean:
		if delta < 0 || h.TempValue > 0 {
			return 0, true
		}
		return 1, true
	case constants.MetricCounter:
		next := h.TempValue + delta
		if next < 0 {
			next = 0
		}
		if h.MaxValue != nil && next > *h.MaxValue {
			next = *h.MaxValue
		}
		return next, true
	}
	return 0, false
}

// Clone returns a copy that shares no mutable state with h.
func (h Habit) Clone() Habit {
	c := h
	if h.MaxValue != nil {
		v := *h.MaxValue
		c.MaxValue = &v
	}
	if h.Category != nil {
		cat := *h.Category
		c.Category = &cat
	}
	if h.Tags != nil {
		c.Tags = append([]TagRef(nil), h.Tags...)
	}
	return c
}

// HabitDefinition is the body used to create a habit
type HabitDefinition struct {
	Name       string               `json:"name"`
	MetricType constants.MetricType `json:"metric_type"`
	Unit       string               `json:"unit,omitempty"`
	MaxValue   *float64             `json:"max_value,omitempty"`
	CategoryID *int64               `json:"category_id,omitempty"`
	TagIDs     []int64              `json:"tag_ids,omitempty"`
	Icon       string               `json:"icon,omitempty"`
	Color      string               `json:"color,omitempty"`
}

// HabitPatch is a partial habit update. Nil fields are left untouched.
// A CategoryID pointing at 0 clears the category.
type HabitPatch struct {
	Name       *string
	MetricType *constants.MetricType
	Unit       *string
	MaxValue   *float64
	CategoryID *int64
	TagIDs     []int64
	Icon       *string
	Color      *string
}

// Empty reports whether the patch changes nothing.
func (p HabitPatch) Empty() bool {
	return p.Name == nil && p.MetricType == nil && p.Unit == nil && p.MaxValue == nil &&
		p.CategoryID == nil && p.TagIDs == nil && p.Icon == nil && p.Color == nil
}

func (p HabitPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)
	if p.Name != nil {
		body["name"] = *p.Name
	}
	if p.MetricType != nil {
		body["metric_type"] = *p.MetricType
	}
	if p.Unit != nil {
		body["unit"] = *p.Unit
	}
	if p.MaxValue != nil {
		body["max_value"] = *p.MaxValue
	}
	if p.CategoryID != nil {
		if *p.CategoryID == 0 {
			body["category_id"] = nil
		} else {
			body["category_id"] = *p.CategoryID
		}
	}
	if p.TagIDs != nil {
		body["tag_ids"] = p.TagIDs
	}
	if p.Icon != nil {
		body["icon"] = *p.Icon
	}
	if p.Color != nil {
		body["color"] = *p.Color
	}
	return json.Marshal(body)
}

// ApplyTo merges the patch into h, exactly as submitted.
func (p HabitPatch) ApplyTo(h *Habit) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.MetricType != nil {
		h.MetricType = *p.MetricType
	}
	if p.Unit != nil {
		h.Unit = *p.Unit
	}
	if p.MaxValue != nil {
		v := *p.MaxValue
		h.MaxValue = &v
	}
	if p.CategoryID != nil {
		if *p.CategoryID == 0 {
			h.Category = nil
		} else if h.Category == nil || h.Category.ID != *p.CategoryID {
			h.Category = &CategoryRef{ID: *p.CategoryID}
		}
	}
	if p.TagIDs != nil {
		known := make(map[int64]TagRef, len(h.Tags))
		for _, t := range h.Tags {
			known[t.ID] = t
		}
		tags := make([]TagRef, 0, len(p.TagIDs))
		for _, id := range p.TagIDs {
			if t, ok := known[id]; ok {
				tags = append(tags, t)
			} else {
				tags = append(tags, TagRef{ID: id})
			}
		}
		h.Tags = tags
	}
	if p.Icon != nil {
		h.Icon = *p.Icon
	}
	if p.Color != nil {
		h.Color = *p.Color
	}
}

// CompletionRequest is the body of habits/{id}/complete/
type CompletionRequest struct {
	Value float64 `json:"value"`
	Date  string  `json:"date"`
}
