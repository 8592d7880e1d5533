// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

// A SimEvent is a coarse lifecycle notification delivered to observers.
//
type SimEvent uint8

// Lifecycle notifications.
//
const (
	SimStarted SimEvent = iota
	SimStopped
	SimReset
	SimOscillation
	SimTimeout
)

func (e SimEvent) String() string {
	switch e {
	case SimStarted:
		return "started"
	case SimStopped:
		return "stopped"
	case SimReset:
		return "reset"
	case SimOscillation:
		return "oscillation"
	case SimTimeout:
		return "timeout"
	}
	return "?"
}

// An Observer receives trace callbacks from the propagator. Callbacks run
// synchronously inside the event loop, in the order of the changes they
// report, with no coalescing. Observers must not mutate simulator state;
// they may read through the public query API.
//
type Observer interface {
	// OnSignalChange fires on every committed node value change.
	OnSignalChange(node NodeID, old, new Signal, t Timestamp)
	// OnClockEdge fires when a clock edge is delivered on node.
	OnClockEdge(node NodeID, e Edge, t Timestamp)
	// OnStepComplete fires after each exhausted instant.
	OnStepComplete(t Timestamp, eventsProcessed uint64)
	// OnSimulationEvent fires on lifecycle transitions.
	OnSimulationEvent(ev SimEvent)
}

// BaseObserver is a no-op Observer for embedding, so that consumers only
// implement the callbacks they care about.
//
type BaseObserver struct{}

// OnSignalChange implements Observer.
func (BaseObserver) OnSignalChange(NodeID, Signal, Signal, Timestamp) {}

// OnClockEdge implements Observer.
func (BaseObserver) OnClockEdge(NodeID, Edge, Timestamp) {}

// OnStepComplete implements Observer.
func (BaseObserver) OnStepComplete(Timestamp, uint64) {}

// OnSimulationEvent implements Observer.
func (BaseObserver) OnSimulationEvent(SimEvent) {}

// An ObserverID identifies a registered observer.
//
type ObserverID uint64

type observerEntry struct {
	id ObserverID
	o  Observer
}

// An observerList fans callbacks out to registered observers in
// registration order. Deregistered observers are never called again.
//
type observerList struct {
	obs    []observerEntry
	nextID ObserverID
}

func (l *observerList) register(o Observer) ObserverID {
	id := l.nextID
	l.nextID++
	l.obs = append(l.obs, observerEntry{id: id, o: o})
	return id
}

func (l *observerList) unregister(id ObserverID) bool {
	for i := range l.obs {
		if l.obs[i].id == id {
			l.obs = append(l.obs[:i], l.obs[i+1:]...)
			return true
		}
	}
	return false
}

func (l *observerList) signalChange(node NodeID, old, new Signal, t Timestamp) {
	for i := range l.obs {
		l.obs[i].o.OnSignalChange(node, old, new, t)
	}
}

func (l *observerList) clockEdge(node NodeID, e Edge, t Timestamp) {
	for i := range l.obs {
		l.obs[i].o.OnClockEdge(node, e, t)
	}
}

func (l *observerList) stepComplete(t Timestamp, events uint64) {
	for i := range l.obs {
		l.obs[i].o.OnStepComplete(t, events)
	}
}

func (l *observerList) simEvent(ev SimEvent) {
	for i := range l.obs {
		l.obs[i].o.OnSimulationEvent(ev)
	}
}
