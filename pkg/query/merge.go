package query

import (
	"sort"

	"github.com/timoklimmer/documentdb-go/pkg/client"
)

// merger accumulates records across pages and outer-joins their fields.
// Pages of one query may carry differently shaped records; the merged
// result gives every record the same field set, like a table whose
// column list is the union of all rows.
type merger struct {
	fields []string
	known  map[string]struct{}
	docs   []client.Document
}

func newMerger() *merger {
	return &merger{known: make(map[string]struct{})}
}

func (m *merger) addPage(docs []client.Document) {
	for _, doc := range docs {
		m.add(doc)
	}
}

func (m *merger) add(doc client.Document) {
	if doc == nil {
		doc = client.Document{}
	}

	// New fields enter the union in record order; within one record they
	// are sorted, since field order inside a decoded record is undefined.
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := m.known[name]; !ok {
			m.known[name] = struct{}{}
			m.fields = append(m.fields, name)
		}
	}

	m.docs = append(m.docs, doc)
}

// collect backfills every record with the full field union and returns
// the merged records along with the field list.
func (m *merger) collect() ([]client.Document, []string) {
	for _, doc := range m.docs {
		for _, field := range m.fields {
			if _, ok := doc[field]; !ok {
				doc[field] = nil
			}
		}
	}
	return m.docs, m.fields
}
