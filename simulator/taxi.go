package simulator

import (
	"slices"
	"sync"

	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/infra/citymap"
)

type job struct {
	fare     *fare
	pickedUp bool
}

// Taxi is a simulated agent. It drives one node per tick along the route
// through its accepted jobs.
type Taxi struct {
	id     model.AgentID
	number int

	mu       sync.RWMutex
	location model.Coord
	jobs     []*job
	route    []model.Coord
	revenue  float64
}

// NewTaxi parks a taxi at location.
func NewTaxi(id model.AgentID, number int, location model.Coord) *Taxi {
	return &Taxi{id: id, number: number, location: location}
}

func (t *Taxi) ID() model.AgentID { return t.id }
func (t *Taxi) Number() int       { return t.number }

func (t *Taxi) CurrentLocation() model.Coord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.location
}

func (t *Taxi) PlannedPath() []model.Coord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.route)
}

func (t *Taxi) Revenue() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revenue
}

// Idle reports whether the taxi has no job.
func (t *Taxi) Idle() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs) == 0
}

// accept queues a job and replans. It reports false when a leg of the new
// route cannot be driven, in which case the job is not kept.
func (t *Taxi) accept(f *fare, city *citymap.CityMap) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = append(t.jobs, &job{fare: f})
	if !t.replanLocked(city) {
		t.jobs = t.jobs[:len(t.jobs)-1]
		t.replanLocked(city)
		return false
	}
	return true
}

// drop removes the first job picking up at origin.
func (t *Taxi) drop(origin model.Coord, city *citymap.CityMap) *fare {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.IndexFunc(t.jobs, func(j *job) bool { return !j.pickedUp && j.fare.key.Origin == origin })
	if i < 0 {
		return nil
	}
	f := t.jobs[i].fare
	t.jobs = slices.Delete(t.jobs, i, i+1)
	t.replanLocked(city)
	return f
}

func (t *Taxi) replanLocked(city *citymap.CityMap) bool {
	var route []model.Coord
	cur := t.location
	leg := func(to model.Coord) bool {
		if cur == to {
			return true
		}
		r := city.Route(cur, to)
		if r == nil {
			return false
		}
		route = append(route, r...)
		cur = to
		return true
	}
	for _, j := range t.jobs {
		if !j.pickedUp && !leg(j.fare.key.Origin) {
			return false
		}
		if !leg(j.fare.key.Destination) {
			return false
		}
	}
	t.route = route
	return true
}

// step moves the taxi one node and returns the fares picked up and
// completed at the reached node.
func (t *Taxi) step() (picked, done []*fare) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Jobs waiting at the current node are served before moving.
	picked, done = t.serveLocked()
	if len(t.route) > 0 {
		t.location = t.route[0]
		t.route = t.route[1:]
		p, d := t.serveLocked()
		picked = append(picked, p...)
		done = append(done, d...)
	}
	return picked, done
}

func (t *Taxi) serveLocked() (picked, done []*fare) {
	for len(t.jobs) > 0 {
		j := t.jobs[0]
		switch {
		case !j.pickedUp && j.fare.key.Origin == t.location:
			j.pickedUp = true
			picked = append(picked, j.fare)
		case j.pickedUp && j.fare.key.Destination == t.location:
			t.jobs = t.jobs[1:]
			done = append(done, j.fare)
		default:
			return picked, done
		}
	}
	return picked, done
}

func (t *Taxi) earn(amount float64) {
	t.mu.Lock()
	t.revenue += amount
	t.mu.Unlock()
}
