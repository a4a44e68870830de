package models

import "time"

// TimeSlot is a preferred viewing slot in the viewer's week.
type TimeSlot struct {
	Weekday time.Weekday `json:"weekday"`
	Hour    int          `json:"hour"` // 0-23
}

// PersonalizationData is the per-viewer profile the discovery engine reads
// when scoring streams. It is supplied by the profile store and is
// read-only to the engine.
type PersonalizationData struct {
	ViewerID          string                     `json:"viewer_id"`
	FollowedCreators  map[string]bool            `json:"followed_creators"`
	CategoryWeights   map[StreamCategory]float64 `json:"category_weights"` // 0-1 per category
	Languages         []string                   `json:"languages"`
	Timezone          string                     `json:"timezone"`
	AvgSessionMinutes int                        `json:"avg_session_minutes"`
	PreferredSlots    []TimeSlot                 `json:"preferred_slots"`
}

// Follows reports whether the viewer follows the given creator.
func (p *PersonalizationData) Follows(creatorID string) bool {
	if p == nil {
		return false
	}
	return p.FollowedCreators[creatorID]
}

// CategoryWeight returns the viewer's preference weight for a category,
// defaulting to 0 when absent.
func (p *PersonalizationData) CategoryWeight(c StreamCategory) float64 {
	if p == nil {
		return 0
	}
	return p.CategoryWeights[c]
}

// PrefersLanguage reports whether the language is in the viewer's
// preferred set.
func (p *PersonalizationData) PrefersLanguage(lang string) bool {
	if p == nil {
		return false
	}
	for _, l := range p.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// PrefersSlot reports whether the given weekday/hour matches one of the
// viewer's preferred time slots.
func (p *PersonalizationData) PrefersSlot(weekday time.Weekday, hour int) bool {
	if p == nil {
		return false
	}
	for _, slot := range p.PreferredSlots {
		if slot.Weekday == weekday && slot.Hour == hour {
			return true
		}
	}
	return false
}
