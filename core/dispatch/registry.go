package dispatch

import (
	"iter"
	"slices"
	"sort"

	"github.com/kilianp07/taxidispatch/core/model"
)

type route struct {
	origin, destination model.Coord
}

// FareRegistry holds the pending fares. Fares are keyed by their
// (origin, destination, call time) triple and enumerated grouped by origin,
// then destination, in the order each was first seen, with call times
// ascending inside a route.
//
// FareRegistry is not safe for concurrent use; the Coordinator serializes
// every access.
type FareRegistry struct {
	fares        map[model.FareKey]*model.FareRequest
	times        map[route][]int
	origins      []model.Coord
	destinations map[model.Coord][]model.Coord
}

// NewFareRegistry returns an empty registry.
func NewFareRegistry() *FareRegistry {
	return &FareRegistry{
		fares:        make(map[model.FareKey]*model.FareRequest),
		times:        make(map[route][]int),
		destinations: make(map[model.Coord][]model.Coord),
	}
}

// Register inserts a fresh fare at key, replacing any fare already stored
// there.
func (r *FareRegistry) Register(key model.FareKey) *model.FareRequest {
	fare := model.NewFareRequest(key)
	if _, ok := r.fares[key]; !ok {
		r.index(key)
	}
	r.fares[key] = fare
	return fare
}

func (r *FareRegistry) index(key model.FareKey) {
	rt := route{key.Origin, key.Destination}
	ts, ok := r.times[rt]
	if !ok {
		dests, seen := r.destinations[key.Origin]
		if !seen {
			r.origins = append(r.origins, key.Origin)
		}
		r.destinations[key.Origin] = append(dests, key.Destination)
	}
	i := sort.SearchInts(ts, key.CallTime)
	r.times[rt] = slices.Insert(ts, i, key.CallTime)
}

// Cancel removes the fare at key. The removed fare is returned so the caller
// can notify its agent; ok is false when nothing was stored at key.
func (r *FareRegistry) Cancel(key model.FareKey) (model.FareRequest, bool) {
	fare, ok := r.fares[key]
	if !ok {
		return model.FareRequest{}, false
	}
	delete(r.fares, key)
	r.unindex(key)
	return fare.Clone(), true
}

func (r *FareRegistry) unindex(key model.FareKey) {
	rt := route{key.Origin, key.Destination}
	ts := r.times[rt]
	if i, found := slices.BinarySearch(ts, key.CallTime); found {
		ts = slices.Delete(ts, i, i+1)
	}
	if len(ts) > 0 {
		r.times[rt] = ts
		return
	}
	delete(r.times, rt)
	dests := slices.DeleteFunc(r.destinations[key.Origin], func(d model.Coord) bool {
		return d == key.Destination
	})
	if len(dests) > 0 {
		r.destinations[key.Origin] = dests
		return
	}
	delete(r.destinations, key.Origin)
	r.origins = slices.DeleteFunc(r.origins, func(o model.Coord) bool {
		return o == key.Origin
	})
}

// Lookup returns the live fare stored at key.
func (r *FareRegistry) Lookup(key model.FareKey) (*model.FareRequest, bool) {
	fare, ok := r.fares[key]
	return fare, ok
}

// Len returns the number of stored fares.
func (r *FareRegistry) Len() int { return len(r.fares) }

// Pending lazily yields every stored fare. Fares removed while the sequence
// is consumed are skipped; fares added meanwhile may or may not be yielded.
func (r *FareRegistry) Pending() iter.Seq[*model.FareRequest] {
	return func(yield func(*model.FareRequest) bool) {
		for _, origin := range slices.Clone(r.origins) {
			if !r.yieldOrigin(origin, yield) {
				return
			}
		}
	}
}

// FromOrigin lazily yields the fares starting at origin, in enumeration order.
func (r *FareRegistry) FromOrigin(origin model.Coord) iter.Seq[*model.FareRequest] {
	return func(yield func(*model.FareRequest) bool) {
		r.yieldOrigin(origin, yield)
	}
}

func (r *FareRegistry) yieldOrigin(origin model.Coord, yield func(*model.FareRequest) bool) bool {
	for _, dest := range slices.Clone(r.destinations[origin]) {
		for _, t := range slices.Clone(r.times[route{origin, dest}]) {
			fare, ok := r.fares[model.FareKey{Origin: origin, Destination: dest, CallTime: t}]
			if !ok {
				continue
			}
			if !yield(fare) {
				return false
			}
		}
	}
	return true
}

// Snapshot returns deep copies of every fare in enumeration order.
func (r *FareRegistry) Snapshot() []model.FareRequest {
	out := make([]model.FareRequest, 0, len(r.fares))
	for fare := range r.Pending() {
		out = append(out, fare.Clone())
	}
	return out
}

// Origins returns the origins that still hold at least one fare.
func (r *FareRegistry) Origins() []model.Coord { return slices.Clone(r.origins) }

// Destinations returns the destinations indexed under origin.
func (r *FareRegistry) Destinations(origin model.Coord) []model.Coord {
	return slices.Clone(r.destinations[origin])
}
