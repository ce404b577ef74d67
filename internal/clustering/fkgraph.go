package clustering

import (
	"context"
	"sort"
	"strings"

	"github.com/jonathan/ontology-api/internal/types"
)

// FKGraph clusters tables by connected components of the foreign-key graph.
// Tables that reference each other, directly or transitively, end up in the
// same cluster. Isolated tables become singleton clusters, optionally merged
// by name prefix.
type FKGraph struct {
	opts Options
}

// NewFKGraph creates the default clustering algorithm.
func NewFKGraph(opts Options) *FKGraph {
	return &FKGraph{opts: opts}
}

var _ Algorithm = (*FKGraph)(nil)

// Cluster walks the schema's foreign keys and returns one cluster per
// connected component, ordered deterministically.
func (g *FKGraph) Cluster(ctx context.Context, schema *types.DatabaseSchema, progress ProgressFunc) ([]types.ClusterInfo, error) {
	uf := newUnionFind()
	for _, t := range schema.Tables {
		uf.add(t.Name)
	}

	total := len(schema.Tables)
	for i, t := range schema.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, fk := range t.ForeignKeys {
			// References to tables outside the schema are ignored.
			if uf.has(fk.ReferencedTable) {
				uf.union(t.Name, fk.ReferencedTable)
			}
		}
		progress.report(i+1, total, "Analyzing foreign keys...")
	}

	components := uf.components()
	if g.opts.MergeSingletons {
		components = mergeSingletonsByPrefix(components)
	}

	clusters := make([]types.ClusterInfo, 0, len(components))
	for i, tables := range components {
		clusters = append(clusters, types.ClusterInfo{
			ClusterID:   i + 1,
			Name:        clusterName(tables),
			Description: clusterDescription(tables),
			Tables:      tables,
		})
	}
	progress.report(total, total, "Clustering complete")
	return clusters, nil
}

// clusterName picks a representative name: the shared name prefix when the
// tables have one, otherwise the first table.
func clusterName(tables []string) string {
	if len(tables) == 1 {
		return tables[0]
	}
	if p := sharedPrefix(tables); p != "" {
		return p
	}
	return tables[0]
}

func clusterDescription(tables []string) string {
	if len(tables) == 1 {
		return "Isolated table with no foreign-key links"
	}
	return "Tables linked by foreign keys"
}

// sharedPrefix returns the first underscore-delimited token when every
// table starts with it, otherwise "".
func sharedPrefix(tables []string) string {
	token := firstToken(tables[0])
	for _, t := range tables[1:] {
		if firstToken(t) != token {
			return ""
		}
	}
	return token
}

func firstToken(name string) string {
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}
	return name
}

// mergeSingletonsByPrefix folds single-table components sharing a name
// prefix into one component. Multi-table components are left untouched.
func mergeSingletonsByPrefix(components [][]string) [][]string {
	var out [][]string
	byPrefix := make(map[string][]string)
	var prefixes []string

	for _, c := range components {
		if len(c) > 1 {
			out = append(out, c)
			continue
		}
		p := firstToken(c[0])
		if _, seen := byPrefix[p]; !seen {
			prefixes = append(prefixes, p)
		}
		byPrefix[p] = append(byPrefix[p], c[0])
	}

	for _, p := range prefixes {
		group := byPrefix[p]
		sort.Strings(group)
		out = append(out, group)
	}

	sortComponents(out)
	return out
}

// unionFind is a plain disjoint-set over table names.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) add(name string) {
	if _, ok := u.parent[name]; !ok {
		u.parent[name] = name
	}
}

func (u *unionFind) has(name string) bool {
	_, ok := u.parent[name]
	return ok
}

func (u *unionFind) find(name string) string {
	for u.parent[name] != name {
		u.parent[name] = u.parent[u.parent[name]]
		name = u.parent[name]
	}
	return name
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// components returns the disjoint sets, each sorted, ordered by their
// first member for deterministic output.
func (u *unionFind) components() [][]string {
	groups := make(map[string][]string)
	for name := range u.parent {
		root := u.find(name)
		groups[root] = append(groups[root], name)
	}

	out := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		out = append(out, members)
	}
	sortComponents(out)
	return out
}

func sortComponents(components [][]string) {
	sort.Slice(components, func(i, j int) bool {
		return components[i][0] < components[j][0]
	})
}
