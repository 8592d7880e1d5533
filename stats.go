// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logsim

import (
	"fmt"
	"strings"
)

// Stats holds running simulation counters.
//
type Stats struct {
	// EventsProcessed counts every dispatched event since the last reset.
	EventsProcessed uint64
	// StepsCompleted counts exhausted instants.
	StepsCompleted uint64
	// LastConvergence is the number of events dispatched by the most recent
	// run before it settled or halted.
	LastConvergence uint64
	// OscillationTrips counts oscillation-guard activations.
	OscillationTrips uint64
}

func (s *Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "events processed:  %d\n", s.EventsProcessed)
	fmt.Fprintf(&b, "steps completed:   %d\n", s.StepsCompleted)
	fmt.Fprintf(&b, "last convergence:  %d events\n", s.LastConvergence)
	fmt.Fprintf(&b, "oscillation trips: %d", s.OscillationTrips)
	return b.String()
}
