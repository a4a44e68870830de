package discovery

import (
	"sort"

	"github.com/fanlive/live-platform/internal/models"
)

// Recommendations scores every stream with personalization applied, sorts
// descending and truncates to limit. Fully deterministic: no randomness,
// ties break on viewer count then stream id. A limit <= 0 returns an
// empty list.
func (e *Engine) Recommendations(streams []*models.Stream, metricsByID map[string]*models.StreamMetrics, p *models.PersonalizationData, limit int) []*models.Stream {
	if limit <= 0 || len(streams) == 0 {
		return []*models.Stream{}
	}

	scored := make([]*models.Stream, len(streams))
	copy(scored, streams)

	scores := make(map[string]float64, len(scored))
	for _, s := range scored {
		scores[s.ID] = e.DiscoveryScore(s, metricsByID[s.ID], p)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scores[scored[i].ID] != scores[scored[j].ID] {
			return scores[scored[i].ID] > scores[scored[j].ID]
		}
		return tieBreak(scored[i], scored[j])
	})

	if limit < len(scored) {
		scored = scored[:limit]
	}
	return scored
}
