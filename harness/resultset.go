package harness

// ResultSet maps family names to the records collected for them during
// one harness invocation. It is not safe for concurrent use.
type ResultSet struct {
	order   []string
	records map[string][]Record
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{records: make(map[string][]Record)}
}

// Store sets the records of family, replacing any earlier entry.
func (rs *ResultSet) Store(family string, records []Record) {
	if _, ok := rs.records[family]; !ok {
		rs.order = append(rs.order, family)
	}

	rs.records[family] = append([]Record(nil), records...)
}

// Get returns the records stored for family.
func (rs *ResultSet) Get(family string) ([]Record, bool) {
	records, ok := rs.records[family]
	if !ok {
		return nil, false
	}

	return append([]Record(nil), records...), true
}

// Families returns the stored family names in first-store order.
func (rs *ResultSet) Families() []string {
	return append([]string(nil), rs.order...)
}

// Len returns the number of stored families.
func (rs *ResultSet) Len() int {
	return len(rs.order)
}
