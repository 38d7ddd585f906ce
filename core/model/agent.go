package model

// AgentID is a stable opaque identifier for a taxi agent.
type AgentID string

// WorldID identifies the environment a dispatcher is bound to.
type WorldID string

// Agent is the record contract the dispatcher reads from the world. The world
// owns the record; the dispatcher only keeps references.
type Agent interface {
	ID() AgentID
	// Number is the human facing taxi number used in reports.
	Number() int
	CurrentLocation() Coord
	// PlannedPath lists the upcoming stops, the last one being the final
	// destination of the current plan.
	PlannedPath() []Coord
	Revenue() float64
}

// AgentSnapshot is a plain Agent implementation, used for handovers, remote
// agents and tests.
type AgentSnapshot struct {
	AgentID  AgentID `json:"id"`
	Num      int     `json:"number"`
	Location Coord   `json:"location"`
	Path     []Coord `json:"path"`
	Earned   float64 `json:"revenue"`
}

func (a *AgentSnapshot) ID() AgentID            { return a.AgentID }
func (a *AgentSnapshot) Number() int            { return a.Num }
func (a *AgentSnapshot) CurrentLocation() Coord { return a.Location }
func (a *AgentSnapshot) PlannedPath() []Coord   { return a.Path }
func (a *AgentSnapshot) Revenue() float64       { return a.Earned }

// Snapshot copies the observable state of any Agent.
func Snapshot(a Agent) AgentSnapshot {
	return AgentSnapshot{
		AgentID:  a.ID(),
		Num:      a.Number(),
		Location: a.CurrentLocation(),
		Path:     append([]Coord(nil), a.PlannedPath()...),
		Earned:   a.Revenue(),
	}
}
