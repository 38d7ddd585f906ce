package citymap

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/taxidispatch/core/model"
)

// NodeSpec describes one intersection of a map file.
type NodeSpec struct {
	Coord      model.Coord       `yaml:"coord"`
	Traffic    float64           `yaml:"traffic"`
	Neighbours []model.Neighbour `yaml:"neighbours"`
}

// File is the YAML layout of a map file.
type File struct {
	Name  string     `yaml:"name"`
	Nodes []NodeSpec `yaml:"nodes"`
}

// Load reads a YAML map file.
func Load(path string) (*CityMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	return Parse(data)
}

// Parse builds a map from YAML. Every street must lead to a declared node.
func Parse(data []byte) (*CityMap, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	return Build(f)
}

// Build creates a map from its description, joining all street errors.
func Build(f File) (*CityMap, error) {
	if len(f.Nodes) == 0 {
		return nil, errors.New("citymap: map has no nodes")
	}
	m := newCityMap()
	for _, n := range f.Nodes {
		if _, dup := m.ids[n.Coord]; dup {
			return nil, fmt.Errorf("citymap: node %s declared twice", n.Coord)
		}
		m.addNode(n.Coord, n.Traffic)
	}
	var errs []error
	for _, n := range f.Nodes {
		for _, nb := range n.Neighbours {
			if err := m.addStreet(n.Coord, nb); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Grid generates a width x height grid with two way streets between
// horizontally and vertically adjacent nodes and uniform traffic.
func Grid(width, height int) (*CityMap, error) {
	if width <= 0 || height <= 0 || width*height < 2 {
		return nil, fmt.Errorf("citymap: invalid grid %dx%d", width, height)
	}
	f := File{Name: fmt.Sprintf("grid-%dx%d", width, height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			n := NodeSpec{Coord: model.Coord{X: x, Y: y}, Traffic: 1}
			for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				label := fmt.Sprintf("street-%d", y)
				if d[0] == 0 {
					label = fmt.Sprintf("avenue-%d", x)
				}
				n.Neighbours = append(n.Neighbours, model.Neighbour{Label: label, Coord: model.Coord{X: nx, Y: ny}})
			}
			f.Nodes = append(f.Nodes, n)
		}
	}
	return Build(f)
}
