package exposure

// Detector computes which records in a fetched snapshot are new or changed
// relative to the previously accepted one. The comparison is strictly
// key-based: positional or count-per-category comparisons break whenever the
// upstream reorders or removes rows.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Run returns the records in updated whose natural key is absent from prev,
// or present with a differing category or visit times. Records that
// disappeared from the feed are not reported. When a snapshot contains
// duplicate keys the later-scraped instance wins.
func (d *Detector) Run(prev, updated Snapshot) ChangeSet {
	known := make(map[Key]Record, len(prev))
	for _, rec := range prev {
		known[rec.Key()] = rec
	}

	latest := make(map[Key]int, len(updated))
	for i, rec := range updated {
		latest[rec.Key()] = i
	}

	var cs ChangeSet
	for i, rec := range updated {
		key := rec.Key()
		if latest[key] != i {
			continue
		}

		old, ok := known[key]
		if !ok || old.Category != rec.Category || old.Arrival != rec.Arrival || old.Departure != rec.Departure {
			cs.Add(rec)
		}
	}

	return cs
}
