package model

// Node is a location resolved by the world's node table.
type Node struct {
	Coord Coord `json:"coord"`
}

// Neighbour references an adjacent node by coordinate together with the label
// of the connecting street.
type Neighbour struct {
	Label string `json:"label" yaml:"label"`
	Coord Coord  `json:"coord" yaml:"coord"`
}

// Edge is the dispatcher's view of a street segment.
type Edge struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Adjacency maps each node to its neighbours.
type Adjacency map[Coord]map[Coord]Edge
