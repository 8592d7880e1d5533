/*
Package logsim is a discrete-event digital logic simulation kernel.

It simulates structural netlists of multi-bit components connected by wires,
tunnels and splitters, using four-valued logic (low, high, unknown, error)
with weak/strong drive strengths. Time advances through a priority event
queue with deterministic ordering: given the same circuit and the same
stimuli, two runs produce bit-identical traces.

A circuit is built through the Simulation's builder API (AddComponent,
Connect, AddWire, AddTunnel, Finalize) and driven with Step, Run and Tick.
Component implementations live in the stdlib package; circuit files are
loaded by the circ package.
*/
package logsim
