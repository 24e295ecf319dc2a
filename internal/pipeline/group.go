package pipeline

import (
	"strings"

	"kdtboard/internal"
	"kdtboard/internal/rules"
	"kdtboard/internal/util"
)

// Grouper clusters institution name variants into canonical groups. Alias
// table membership wins outright; everything else goes through greedy
// single-pass similarity clustering.
//
// Clustering is order-dependent on purpose: each name joins the first open
// group with a similar-enough member, so a permuted input can cluster
// differently. Callers must feed records in a single stable order (the
// source row order) for reproducible output.
type Grouper struct {
	threshold float64
	aliases   map[string]string // normalized variant -> canonical label
}

func NewGrouper(r rules.Rules) *Grouper {
	aliases := map[string]string{}
	for _, group := range r.AliasGroups {
		if len(group) == 0 {
			continue
		}
		canonical := group[0]
		for _, member := range group {
			aliases[util.NormalizeName(member)] = canonical
		}
	}
	return &Grouper{threshold: r.SimilarityThreshold, aliases: aliases}
}

type cluster struct {
	members []string // normalized names in join order
	counts  map[string]int
}

// BuildMapping folds the ordered record slice into a cluster index and
// returns raw institution name -> canonical group label. Blank names are
// left out of the mapping entirely.
func (g *Grouper) BuildMapping(records []internal.CourseRecord) map[string]string {
	normByRaw := map[string]string{}
	clusterByNorm := map[string]*cluster{}
	aliasByRaw := map[string]string{}
	var clusters []*cluster

	for _, rec := range records {
		raw := rec.Institution
		if strings.TrimSpace(raw) == "" {
			continue
		}

		norm, seen := normByRaw[raw]
		if !seen {
			norm = util.NormalizeName(raw)
			normByRaw[raw] = norm
		}
		if norm == "" {
			continue
		}

		if canonical, ok := g.aliases[norm]; ok {
			aliasByRaw[raw] = canonical
			continue
		}

		if c, ok := clusterByNorm[norm]; ok {
			c.counts[norm]++
			continue
		}

		joined := false
		for _, c := range clusters {
			if g.matches(norm, c) {
				c.members = append(c.members, norm)
				c.counts[norm] = 1
				clusterByNorm[norm] = c
				joined = true
				break
			}
		}
		if !joined {
			c := &cluster{members: []string{norm}, counts: map[string]int{norm: 1}}
			clusters = append(clusters, c)
			clusterByNorm[norm] = c
		}
	}

	mapping := make(map[string]string, len(normByRaw))
	for raw, canonical := range aliasByRaw {
		mapping[raw] = canonical
	}
	for raw, norm := range normByRaw {
		if _, ok := mapping[raw]; ok {
			continue
		}
		c, ok := clusterByNorm[norm]
		if !ok {
			continue
		}
		mapping[raw] = c.label()
	}
	return mapping
}

func (g *Grouper) matches(norm string, c *cluster) bool {
	for _, member := range c.members {
		if util.SimilarityRatio(norm, member) > g.threshold {
			return true
		}
	}
	return false
}

// label is the most frequent member, ties broken by join order.
func (c *cluster) label() string {
	best := ""
	bestCount := -1
	for _, member := range c.members {
		if c.counts[member] > bestCount {
			best = member
			bestCount = c.counts[member]
		}
	}
	return best
}

// GroupInstitutions rewrites every record's institution through the mapping.
// Unmapped names keep their original value. A pure rename: revenue fields
// are untouched.
func GroupInstitutions(records []internal.CourseRecord, mapping map[string]string) []internal.CourseRecord {
	out := make([]internal.CourseRecord, 0, len(records))
	for _, rec := range records {
		if canonical, ok := mapping[rec.Institution]; ok {
			rec.Institution = canonical
		}
		out = append(out, rec)
	}
	return out
}
