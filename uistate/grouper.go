package uistate

// Group merges same-id elements into display units. Units emit in
// first-occurrence order of their id, and each unit's collapsed signal comes
// from the first element seen for that id; later elements never override it.
func Group(elements []Element) []Grouped {
	byID := make(map[string]*Grouped, len(elements))
	order := make([]string, 0, len(elements))

	for _, elem := range elements {
		unit, ok := byID[elem.ID]
		if !ok {
			unit = &Grouped{ID: elem.ID, IsCollapsed: elem.IsCollapsed}
			byID[elem.ID] = unit
			order = append(order, elem.ID)
		}
		unit.Components = append(unit.Components, elem.Component)
	}

	out := make([]Grouped, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
