// internal/discovery/sort.go
package discovery

import (
	"sort"

	"github.com/fanlive/live-platform/internal/models"
)

// SortStreams returns a new slice ordered by the given option. Metrics are
// looked up per stream id; streams without an entry are scored with zero
// metrics. Every comparator is a total order: ties break on viewer count
// descending and finally on stream id ascending, so repeated calls over
// equal inputs produce identical orders.
func (e *Engine) SortStreams(streams []*models.Stream, sortBy models.SortOption, metricsByID map[string]*models.StreamMetrics, p *models.PersonalizationData) []*models.Stream {
	sorted := make([]*models.Stream, len(streams))
	copy(sorted, streams)

	switch sortBy {
	case models.SortTrending:
		sort.Slice(sorted, func(i, j int) bool {
			si := metricTrending(metricsByID, sorted[i].ID)
			sj := metricTrending(metricsByID, sorted[j].ID)
			if si != sj {
				return si > sj
			}
			return tieBreak(sorted[i], sorted[j])
		})

	case models.SortMostViewers:
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].ViewerCount != sorted[j].ViewerCount {
				return sorted[i].ViewerCount > sorted[j].ViewerCount
			}
			return sorted[i].ID < sorted[j].ID
		})

	case models.SortRecentlyStarted:
		sort.Slice(sorted, func(i, j int) bool {
			ti, tj := startedAtUnix(sorted[i]), startedAtUnix(sorted[j])
			if ti != tj {
				return ti > tj
			}
			return tieBreak(sorted[i], sorted[j])
		})

	case models.SortFollowing:
		// Without personalization there is no followed set to partition
		// on; the input order is returned unchanged.
		if p == nil {
			return sorted
		}
		sort.Slice(sorted, func(i, j int) bool {
			fi := p.Follows(sorted[i].CreatorID)
			fj := p.Follows(sorted[j].CreatorID)
			if fi != fj {
				return fi
			}
			return tieBreak(sorted[i], sorted[j])
		})

	case models.SortCategory:
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Category != sorted[j].Category {
				return sorted[i].Category < sorted[j].Category
			}
			return tieBreak(sorted[i], sorted[j])
		})

	case models.SortLanguage:
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Language != sorted[j].Language {
				return sorted[i].Language < sorted[j].Language
			}
			return tieBreak(sorted[i], sorted[j])
		})

	default: // relevance
		scores := make(map[string]float64, len(sorted))
		for _, s := range sorted {
			scores[s.ID] = e.DiscoveryScore(s, metricsByID[s.ID], p)
		}
		sort.Slice(sorted, func(i, j int) bool {
			if scores[sorted[i].ID] != scores[sorted[j].ID] {
				return scores[sorted[i].ID] > scores[sorted[j].ID]
			}
			return tieBreak(sorted[i], sorted[j])
		})
	}

	return sorted
}

// tieBreak orders by viewer count descending, then stream id ascending.
func tieBreak(a, b *models.Stream) bool {
	if a.ViewerCount != b.ViewerCount {
		return a.ViewerCount > b.ViewerCount
	}
	return a.ID < b.ID
}

func metricTrending(metricsByID map[string]*models.StreamMetrics, id string) float64 {
	if m, ok := metricsByID[id]; ok && m != nil {
		return m.TrendingScore
	}
	return 0
}

func startedAtUnix(s *models.Stream) int64 {
	if s.StartedAt == nil {
		return 0
	}
	return s.StartedAt.UnixNano()
}
