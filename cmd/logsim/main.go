// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command logsim is a headless circuit runner: it loads a .circ file,
// settles the simulation and prints the resulting node values and stats.
//
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/db47h/logsim"
	"github.com/db47h/logsim/circ"
)

var (
	maxInstant = flag.Uint64("max-instant", logsim.DefaultMaxEventsPerInstant, "oscillation guard: max events per instant")
	maxRun     = flag.Uint64("max-run", 0, "event budget per run (0 = unlimited)")
	timeout    = flag.Duration("timeout", 0, "wall clock limit per run (0 = none)")
	ticks      = flag.Int("ticks", 0, "advance this many clock ticks after settling")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("logsim: ")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: logsim [flags] circuit.circ")
	}

	res, err := circ.LoadFile(flag.Arg(0), logsim.SimConfig{
		MaxEventsPerInstant: *maxInstant,
		MaxEventsPerRun:     *maxRun,
		Timeout:             *timeout,
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, d := range res.Diagnostics {
		log.Printf("warning: %v", d)
	}

	sim := res.Sim
	start := time.Now()
	if *ticks > 0 {
		// clocked circuits never drain the queue; drive them by ticks
		sim.TickN(*ticks)
	} else {
		sim.Run()
	}
	elapsed := time.Since(start)

	fmt.Printf("circuit %q: %v at t=%d (%v)\n", res.Circuit, sim.State(), sim.CurrentTime(), elapsed)
	for i := 0; i < sim.NumNodes(); i++ {
		id := logsim.NodeID(i)
		if name := sim.NodeName(id); name != "" {
			fmt.Printf("  %-16s %v\n", name, sim.NodeSignal(id))
		}
	}
	stats := sim.Stats()
	fmt.Println(stats.String())
}
