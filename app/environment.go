package app

import (
	"github.com/kilianp07/taxidispatch/core/dispatch"
	"github.com/kilianp07/taxidispatch/core/model"
)

// environment joins the city map and the MQTT gateway into the world a
// networked dispatcher is bound to.
type environment struct {
	dispatch.Topology
	dispatch.Messenger
	world model.WorldID
}

func (e environment) WorldID() model.WorldID { return e.world }
