package dataset

// Aggregator folds per-snapshot record batches into named datasets.
//
// Dataset creation order is preserved so exports are stable run to run.
// Aggregator is not safe for concurrent use; a run owns exactly one.
type Aggregator struct {
	order  []string
	tables map[string]*Dataset
}

func NewAggregator() *Aggregator {
	return &Aggregator{tables: make(map[string]*Dataset)}
}

// Add folds recs into the named dataset, creating it with the given columns
// on first use. Records are assumed to already carry their source index.
func (a *Aggregator) Add(name string, columns []string, recs []Record) {
	d, ok := a.tables[name]
	if !ok {
		d = NewDataset(name, columns)
		a.tables[name] = d
		a.order = append(a.order, name)
	}
	for _, r := range recs {
		d.Add(r)
	}
}

// Tables returns the datasets in first-added order.
func (a *Aggregator) Tables() []*Dataset {
	out := make([]*Dataset, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.tables[name])
	}
	return out
}

// Table returns the named dataset, or nil when nothing was added under name.
func (a *Aggregator) Table(name string) *Dataset {
	return a.tables[name]
}
