// internal/discovery/filter.go
package discovery

import (
	"github.com/fanlive/live-platform/internal/models"
)

// FilterStreams returns the streams matching every set predicate of the
// filter. Unset fields impose no constraint. Contradictory combinations
// (PremiumOnly and FreeOnly together) are honored literally and yield an
// empty result; this is deliberate pass-through, not a validation layer.
func FilterStreams(streams []*models.Stream, filter models.StreamFilter) []*models.Stream {
	filtered := make([]*models.Stream, 0, len(streams))
	for _, s := range streams {
		if matchesFilter(s, filter) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func matchesFilter(s *models.Stream, f models.StreamFilter) bool {
	if len(f.Categories) > 0 && !containsCategory(f.Categories, s.Category) {
		return false
	}
	if len(f.Languages) > 0 && !containsString(f.Languages, s.Language) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, s.Status) {
		return false
	}
	if f.FollowedOnly && !s.IsFollowed {
		return false
	}
	if f.PremiumOnly && !s.IsPremium {
		return false
	}
	if f.FreeOnly && s.IsPremium {
		return false
	}
	if f.MinViewers != nil && s.ViewerCount < *f.MinViewers {
		return false
	}
	if f.MaxViewers != nil && s.ViewerCount > *f.MaxViewers {
		return false
	}
	if len(f.Qualities) > 0 && !containsQuality(f.Qualities, s.Quality) {
		return false
	}
	return true
}

func containsCategory(list []models.StreamCategory, v models.StreamCategory) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

func containsStatus(list []models.StreamStatus, v models.StreamStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsQuality(list []models.StreamQuality, v models.StreamQuality) bool {
	for _, q := range list {
		if q == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
