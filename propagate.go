// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"sort"
	"time"
)

// Step exhausts one logical instant: it pops and dispatches every event
// sharing the next pending timestamp. It returns immediately in a terminal
// state.
//
func (s *Simulation) Step() StepResult {
	if s.state.terminal() {
		return StepResult{State: s.state, CurrentTime: s.q.now}
	}
	instant, ok := s.q.peekTime()
	if !ok {
		if s.stats.EventsProcessed > 0 {
			s.state = Settled
		} else {
			s.state = Ready
		}
		return StepResult{State: s.state, CurrentTime: s.q.now}
	}

	s.state = Running
	for k := range s.toggles {
		delete(s.toggles, k)
	}
	var count uint64
	for {
		t, ok := s.q.peekTime()
		if !ok || t != instant {
			break
		}
		e, _ := s.q.pop()
		s.dispatch(e)
		count++
		s.stats.EventsProcessed++
		s.runEvents++
		if s.state.terminal() {
			break
		}
		if count > s.cfg.MaxEventsPerInstant {
			s.tripOscillation()
			break
		}
		if s.cfg.MaxEventsPerRun != 0 && s.runEvents > s.cfg.MaxEventsPerRun {
			s.state = BudgetExceeded
			break
		}
		if !s.deadline.IsZero() && time.Now().After(s.deadline) {
			s.state = TimedOut
			break
		}
	}
	s.stats.StepsCompleted++
	s.obs.stepComplete(instant, count)
	if s.state == Running {
		if s.q.empty() {
			s.state = Settled
		} else {
			s.state = Ready
		}
	}
	return StepResult{State: s.state, EventsProcessed: count, CurrentTime: s.q.now}
}

// tripOscillation halts the simulation and records the frontier: the nodes
// whose values toggled most often within the offending instant.
//
func (s *Simulation) tripOscillation() {
	s.state = Oscillating
	s.stats.OscillationTrips++
	var max uint64
	for _, c := range s.toggles {
		if c > max {
			max = c
		}
	}
	s.oscNodes = s.oscNodes[:0]
	for id, c := range s.toggles {
		if c == max {
			s.oscNodes = append(s.oscNodes, id)
		}
	}
	sort.Slice(s.oscNodes, func(i, j int) bool { return s.oscNodes[i] < s.oscNodes[j] })
	s.obs.simEvent(SimOscillation)
}

// Run repeats Step until the queue drains or a guard trips. The per-run
// event budget and wall-clock deadline are armed for the duration of the
// call; partial progress is preserved on a halt.
//
func (s *Simulation) Run() RunResult {
	s.armRun()
	s.obs.simEvent(SimStarted)
	for !s.state.terminal() && !s.q.empty() {
		s.Step()
	}
	s.finishRun()
	return RunResult{State: s.state, Stats: s.stats}
}

func (s *Simulation) armRun() {
	s.runEvents = 0
	if s.cfg.Timeout > 0 {
		s.deadline = time.Now().Add(s.cfg.Timeout)
	} else {
		s.deadline = time.Time{}
	}
}

func (s *Simulation) finishRun() {
	s.stats.LastConvergence = s.runEvents
	s.deadline = time.Time{}
	switch s.state {
	case TimedOut:
		s.obs.simEvent(SimTimeout)
	case Oscillating:
		// already reported by the guard
	default:
		s.obs.simEvent(SimStopped)
	}
}

// Tick advances up to and including the next rising clock edge, delivering
// any falling edge on the way, then settles the logic that results: it keeps
// stepping whole instants until the next pending instant begins with a clock
// edge. An edge sharing an instant with that logic is delivered with it.
// Without a pending clock edge it behaves like a bounded Run.
//
func (s *Simulation) Tick() StepResult {
	s.armRun()
	last := StepResult{State: s.state, CurrentTime: s.q.now}
	if s.q.clockEdges == 0 {
		for !s.state.terminal() && !s.q.empty() {
			last = s.Step()
		}
		s.finishRun()
		return last
	}
	s.edgeSeen = false
	for !s.state.terminal() && !s.q.empty() && !s.edgeSeen {
		last = s.Step()
	}
	// settle combinational fallout, stopping short of the next edge
	for !s.state.terminal() {
		e, ok := s.q.peek()
		if !ok || e.kind == evClockEdge {
			break
		}
		last = s.Step()
	}
	s.finishRun()
	return last
}

// TickN calls Tick k times, stopping early on a terminal state.
//
func (s *Simulation) TickN(k int) StepResult {
	var last StepResult
	for i := 0; i < k; i++ {
		last = s.Tick()
		if last.State.terminal() {
			break
		}
	}
	return last
}

// dispatch routes one event.
//
func (s *Simulation) dispatch(e event) {
	switch e.kind {
	case evSignalChange:
		s.applyDrive(e.source, e.node, e.signal, e.strength)
	case evComponentUpdate:
		s.updateComponent(e.comp)
	case evClockEdge:
		s.deliverClockEdge(e)
	case evReset:
		s.Reset()
	}
}

// applyDrive records a driver contribution, re-resolves the affected
// threads and fans ComponentUpdates out to readers of every changed node.
//
func (s *Simulation) applyDrive(src ComponentID, nid NodeID, sig Signal, st Strength) {
	tids := s.net.setDriver(src, nid, sig, st)
	s.changes = s.changes[:0]
	seen := s.tids[:0]
	for _, tid := range tids {
		dup := false
		for _, t := range seen {
			if t == tid {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, tid)
		v := s.net.resolveThread(tid)
		s.changes = s.net.applyThreadValue(tid, v, s.changes)
	}
	s.tids = seen[:0]
	if len(s.changes) == 0 {
		return
	}
	s.readers = s.readers[:0]
	for _, ch := range s.changes {
		s.obs.signalChange(ch.node, ch.old, ch.new, s.q.now)
		s.toggles[ch.node]++
		s.readers = append(s.readers, s.net.nodes[ch.node].readers...)
	}
	sortComponentIDs(s.readers)
	var prev ComponentID = -1
	for _, r := range s.readers {
		if r == prev {
			continue
		}
		prev = r
		s.schedule(0, event{kind: evComponentUpdate, comp: r})
	}
}

// updateComponent snapshots a component's inputs, evaluates it, and
// schedules SignalChange events for drives that differ from the last ones
// the component applied.
//
func (s *Simulation) updateComponent(id ComponentID) {
	if int(id) >= len(s.net.comps) || s.net.comps[id].removed {
		return
	}
	e := &s.net.comps[id]
	if _, isMapper := e.c.(ThreadMapper); isMapper {
		// pure mappers are wiring, not logic
		return
	}
	in := s.net.snapshot(id)
	res := e.c.Evaluate(in, s.q.now)
	s.emitDrives(id, res)
}

// emitDrives schedules the SignalChange events resulting from one
// evaluation.
//
func (s *Simulation) emitDrives(id ComponentID, res EvalResult) {
	e := &s.net.comps[id]
	d := e.c.PropagationDelay()
	if res.DelayValid {
		d = res.Delay
	}
	for _, dr := range res.Drives {
		nid, bound := e.pinNodes[dr.Pin]
		if !bound {
			continue
		}
		sig := dr.Signal
		if w := s.net.pinWidth(id, dr.Pin); sig.Width() != w {
			sig = ErrorSignal(w)
		}
		if prev, ok := e.applied[dr.Pin]; ok && prev.Signal == sig && prev.Strength == dr.Strength {
			continue
		}
		e.applied[dr.Pin] = Drive{Pin: dr.Pin, Signal: sig, Strength: dr.Strength}
		s.schedule(d, event{kind: evSignalChange, node: nid, signal: sig, strength: dr.Strength, source: id})
		if s.state.terminal() {
			return
		}
	}
}

// deliverClockEdge notifies observers, delivers the edge to every
// edge-triggered component on the edge node's thread, then lets the clock
// source flip its output level and schedule the next edge.
//
func (s *Simulation) deliverClockEdge(e event) {
	// hold the edge behind pending same-instant deliveries so that
	// edge-triggered components sample settled inputs
	if p, ok := s.q.peek(); ok && p.time == s.q.now && p.kind != evClockEdge {
		s.schedule(0, e)
		return
	}
	if e.edge == Rising {
		s.edgeSeen = true
	}
	s.obs.clockEdge(e.node, e.edge, s.q.now)
	nd := &s.net.nodes[e.node]
	if len(nd.threads) > 0 {
		tid := nd.threads[0]
		for _, cid := range s.net.clockListeners[tid] {
			ce := &s.net.comps[cid]
			if ce.removed {
				continue
			}
			et := ce.c.(EdgeTriggered)
			in := s.net.snapshot(cid)
			res := et.OnClockEdge(e.edge, in, s.q.now)
			s.emitDrives(cid, res)
		}
	}
	ce := &s.net.comps[e.source]
	if ce.removed {
		return
	}
	cs, ok := ce.c.(ClockSource)
	if !ok {
		return
	}
	// the source re-evaluates in this instant to drive the new level
	cs.OnEdge(e.edge)
	s.schedule(0, event{kind: evComponentUpdate, comp: e.source})
	next, d := cs.NextEdge(e.edge)
	s.schedule(d, event{kind: evClockEdge, node: e.node, edge: next, source: e.source})
}
