package reconcile

// Result reports what a reconciliation pass changed.
type Result struct {
	// Inserted is the number of derived rows created.
	Inserted int `json:"inserted"`
	// Deleted is the number of stale derived rows removed.
	Deleted int `json:"deleted"`
}

// IsNoop reports whether the pass changed nothing. A pass re-run with no
// intervening configuration change must be a no-op.
func (r Result) IsNoop() bool {
	return r.Inserted == 0 && r.Deleted == 0
}

// Add accumulates another result into this one.
func (r *Result) Add(other Result) {
	r.Inserted += other.Inserted
	r.Deleted += other.Deleted
}

// Insertion describes the derived rows missing for one attached key
// (a coin id or a naming value).
type Insertion struct {
	// Key is the attached key the rows belong to.
	Key string
	// Accounts are the accounts that need a row, in desired-list order.
	Accounts []string
}

// Missing returns the entries of desired that are absent from known,
// preserving the order of desired. Order matters: insertion follows the
// group's account list so runs are deterministic.
func Missing(desired, known []string) []string {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	var missing []string
	for _, d := range desired {
		if _, ok := knownSet[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// PlanInsertions computes, for each attached key, which desired accounts
// have no derived row yet. Keys with nothing missing are omitted. The stale
// side of the diff is not planned here: it is a single filter-based delete
// ("account not in desired") the caller issues across all keys at once,
// against the same desired snapshot used for these insertions.
func PlanInsertions(desired []string, keys []string, knownByKey map[string][]string) []Insertion {
	var plan []Insertion
	for _, key := range keys {
		missing := Missing(desired, knownByKey[key])
		if len(missing) == 0 {
			continue
		}
		plan = append(plan, Insertion{Key: key, Accounts: missing})
	}
	return plan
}
