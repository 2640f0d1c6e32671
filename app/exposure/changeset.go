package exposure

// ChangeSet holds the records deemed new or altered since the last accepted
// snapshot, grouped by severity. Within a severity group records keep the
// order in which they were encountered in the fetched snapshot.
type ChangeSet struct {
	groups [categoryCount][]Record
}

func (cs *ChangeSet) Add(r Record) {
	cs.groups[r.Category] = append(cs.groups[r.Category], r)
}

func (cs *ChangeSet) Len() int {
	total := 0
	for _, group := range cs.groups {
		total += len(group)
	}
	return total
}

// Empty reports whether the change set contains no records. An empty change
// set is a valid, common result of a successful poll.
func (cs *ChangeSet) Empty() bool {
	return cs.Len() == 0
}

// Records returns the records in display order: close contacts first, then
// casual, then monitor, preserving feed order within each group.
func (cs *ChangeSet) Records() []Record {
	out := make([]Record, 0, cs.Len())
	for _, group := range cs.groups {
		out = append(out, group...)
	}
	return out
}
