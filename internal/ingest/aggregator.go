package ingest

// Aggregator groups normalized rows by driver identifier.
// Drivers keep first-seen order; a later entry for the same slot replaces the earlier one.
type Aggregator struct {
	order  []string
	groups map[string]*DriverGroup
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{groups: make(map[string]*DriverGroup)}
}

// Add folds one normalized row into its driver group
func (a *Aggregator) Add(row NormalizedRow) {
	if row.DriverID == "" {
		return
	}
	g, ok := a.groups[row.DriverID]
	if !ok {
		g = &DriverGroup{DriverID: row.DriverID, Entries: make(map[Slot]Entry)}
		a.groups[row.DriverID] = g
		a.order = append(a.order, row.DriverID)
	}
	g.Rows++
	for _, e := range row.Entries {
		g.Entries[e.Slot] = e
	}
}

// Len returns the number of distinct drivers seen so far
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Groups returns the driver groups in first-seen order
func (a *Aggregator) Groups() []DriverGroup {
	out := make([]DriverGroup, 0, len(a.order))
	for _, id := range a.order {
		g := a.groups[id]
		entries := make(map[Slot]Entry, len(g.Entries))
		for s, e := range g.Entries {
			entries[s] = e
		}
		out = append(out, DriverGroup{DriverID: g.DriverID, Entries: entries, Rows: g.Rows})
	}
	return out
}

// Aggregate groups a full sequence of normalized rows
func Aggregate(rows []NormalizedRow) []DriverGroup {
	a := NewAggregator()
	for _, r := range rows {
		a.Add(r)
	}
	return a.Groups()
}
