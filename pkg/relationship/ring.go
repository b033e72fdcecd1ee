package relationship

import "time"

// Activity is one recent-interaction entry.
type Activity struct {
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`
}

// ActivityRing is a bounded newest-first activity list. When full, pushing a
// new entry evicts the oldest one.
type ActivityRing struct {
	Cap   int        `json:"cap"`
	Items []Activity `json:"items"`
}

// NewActivityRing returns an empty ring with the given capacity.
func NewActivityRing(capacity int) ActivityRing {
	if capacity <= 0 {
		capacity = 1
	}
	return ActivityRing{Cap: capacity, Items: []Activity{}}
}

// Push prepends an activity, evicting the oldest entry on overflow.
func (r *ActivityRing) Push(a Activity) {
	if r.Cap <= 0 {
		r.Cap = 1
	}
	r.Items = append([]Activity{a}, r.Items...)
	if len(r.Items) > r.Cap {
		r.Items = r.Items[:r.Cap]
	}
}

// Len returns the number of stored entries.
func (r ActivityRing) Len() int {
	return len(r.Items)
}

// Newest returns the most recent entry, if any.
func (r ActivityRing) Newest() (Activity, bool) {
	if len(r.Items) == 0 {
		return Activity{}, false
	}
	return r.Items[0], true
}
