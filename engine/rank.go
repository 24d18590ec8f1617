package engine

// DefaultTopK is the length of every top/bottom list.
const DefaultTopK = 5

// Rank sums valueKey per distinct groupKey and returns the k largest and k
// smallest groups. Top is descending, Bottom ascending; ties keep the order
// in which groups first appear. With fewer than 2k groups the lists overlap.
func Rank(view RecordView, groupKey, valueKey string, k int) (*Ranking, error) {
	if err := requireColumns(view, KindDimension, groupKey); err != nil {
		return nil, err
	}
	if err := requireColumns(view, KindMeasure, valueKey); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultTopK
	}

	r := &Ranking{GroupBy: groupKey, Measure: valueKey}
	groups := GroupAndAggregate(view, []string{groupKey}, valueKey, AggSum, "", 0)
	if len(groups) == 0 {
		return r, nil
	}

	top := append([]Group(nil), groups...)
	SortGroups(top, SortValueDesc)
	bottom := append([]Group(nil), groups...)
	SortGroups(bottom, SortValueAsc)

	r.Top = top[:min(k, len(top))]
	r.Bottom = bottom[:min(k, len(bottom))]
	return r, nil
}
