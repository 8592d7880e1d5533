// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package circ loads .circ circuit files and replays them through the
// logsim builder API.
//
// The format is XML: a <project> root holding <circuit> elements, which in
// turn hold <comp lib name loc> elements with nested <a name val>
// attributes and <wire from to> elements with "(x,y)" coordinate strings.
// Pin endpoints are bound through attributes named "pin.<name>" whose value
// is a coordinate; components with a single pin bind it at their loc.
//
package circ

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/db47h/logsim"
	"github.com/db47h/logsim/stdlib"
)

type xmlProject struct {
	XMLName  xml.Name     `xml:"project"`
	Source   string       `xml:"source,attr"`
	Version  string       `xml:"version,attr"`
	Circuits []xmlCircuit `xml:"circuit"`
}

type xmlCircuit struct {
	Name  string    `xml:"name,attr"`
	Comps []xmlComp `xml:"comp"`
	Wires []xmlWire `xml:"wire"`
}

type xmlComp struct {
	Lib   string    `xml:"lib,attr"`
	Name  string    `xml:"name,attr"`
	Loc   string    `xml:"loc,attr"`
	Attrs []xmlAttr `xml:"a"`
}

type xmlAttr struct {
	Name string `xml:"name,attr"`
	Val  string `xml:"val,attr"`
}

type xmlWire struct {
	From string `xml:"from,attr"`
	To   string `xml:"to,attr"`
}

// kindNames maps Logisim component names onto stdlib kinds. Names already
// matching a registered factory (Pin, Constant, Power, Ground, Clock,
// Tunnel, Splitter, Probe, Register, Counter, Buffer) pass through
// unchanged.
//
var kindNames = map[string]string{
	"AND Gate":          "And",
	"OR Gate":           "Or",
	"NAND Gate":         "Nand",
	"NOR Gate":          "Nor",
	"XOR Gate":          "Xor",
	"XNOR Gate":         "Xnor",
	"NOT Gate":          "Not",
	"Controlled Buffer": "ControlledBuffer",
	"Pull Resistor":     "PullResistor",
	"D Flip-Flop":       "DFlipFlop",
	"D Latch":           "DLatch",
	"ROM":               "Rom",
	"RAM":               "Ram",
}

// parseCoord parses a "(x,y)" coordinate string.
//
func parseCoord(s string) (logsim.Coord, error) {
	t := strings.TrimSpace(s)
	if len(t) < 5 || t[0] != '(' || t[len(t)-1] != ')' {
		return logsim.Coord{}, errors.Errorf("bad coordinate %q", s)
	}
	parts := strings.Split(t[1:len(t)-1], ",")
	if len(parts) != 2 {
		return logsim.Coord{}, errors.Errorf("bad coordinate %q", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return logsim.Coord{}, errors.Wrapf(err, "bad coordinate %q", s)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return logsim.Coord{}, errors.Wrapf(err, "bad coordinate %q", s)
	}
	return logsim.Coord{X: x, Y: y}, nil
}

// A Result is a loaded circuit: the finalized simulation, the circuit name,
// the ids of the loaded components, and any build diagnostics.
//
type Result struct {
	Sim         *logsim.Simulation
	Circuit     string
	Components  []logsim.ComponentID
	Diagnostics []logsim.Diagnostic
}

// LoadFile reads a .circ file and builds its first circuit.
//
func LoadFile(path string, cfg logsim.SimConfig) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open circuit file")
	}
	defer f.Close()
	r, err := Load(f, cfg)
	return r, errors.Wrap(err, path)
}

// Load reads a .circ document and replays its first circuit through the
// builder API. The returned simulation is finalized and reset.
//
func Load(r io.Reader, cfg logsim.SimConfig) (*Result, error) {
	var proj xmlProject
	if err := xml.NewDecoder(r).Decode(&proj); err != nil {
		return nil, errors.Wrap(err, "parse project XML")
	}
	if len(proj.Circuits) == 0 {
		return nil, errors.New("project holds no circuit")
	}
	if cfg.Registry == nil {
		cfg.Registry = stdlib.Registry()
	}
	sim := logsim.New(cfg)
	res := &Result{Sim: sim, Circuit: proj.Circuits[0].Name}

	ct := proj.Circuits[0]
	for i, c := range ct.Comps {
		kind := c.Name
		if k, ok := kindNames[kind]; ok {
			kind = k
		}
		attrs := make(logsim.AttrMap, len(c.Attrs))
		type pinBind struct {
			pin   string
			coord logsim.Coord
		}
		var binds []pinBind
		for _, a := range c.Attrs {
			if p, ok := strings.CutPrefix(a.Name, "pin."); ok {
				co, err := parseCoord(a.Val)
				if err != nil {
					return nil, errors.Wrapf(err, "comp %d (%s)", i, c.Name)
				}
				binds = append(binds, pinBind{pin: p, coord: co})
				continue
			}
			attrs[a.Name] = a.Val
		}
		id, err := sim.AddComponent(kind, attrs)
		if err != nil {
			return nil, errors.Wrapf(err, "comp %d (%s)", i, c.Name)
		}
		res.Components = append(res.Components, id)
		for _, b := range binds {
			if err := sim.Connect(id, b.pin, b.coord); err != nil {
				return nil, errors.Wrapf(err, "comp %d (%s)", i, c.Name)
			}
		}
		if pins := sim.ComponentPins(id); len(binds) == 0 && c.Loc != "" && len(pins) == 1 {
			// single-pin components bind at their location
			co, err := parseCoord(c.Loc)
			if err != nil {
				return nil, errors.Wrapf(err, "comp %d (%s)", i, c.Name)
			}
			if err := sim.Connect(id, pins[0].Name, co); err != nil {
				return nil, errors.Wrapf(err, "comp %d (%s)", i, c.Name)
			}
		}
	}
	for i, w := range ct.Wires {
		a, err := parseCoord(w.From)
		if err != nil {
			return nil, errors.Wrapf(err, "wire %d", i)
		}
		b, err := parseCoord(w.To)
		if err != nil {
			return nil, errors.Wrapf(err, "wire %d", i)
		}
		if err := sim.AddWire(a, b, 0); err != nil {
			return nil, errors.Wrapf(err, "wire %d", i)
		}
	}

	res.Diagnostics = sim.Finalize()
	sim.Reset()
	return res, nil
}

