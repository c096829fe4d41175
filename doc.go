/*
Package arbor evaluates pre-trained decision trees on the client side.

A tree document describes a set of typed context properties, the outputs to
predict, and one decision tree per output. Given a partial context and a
time, the engine derives the time-based properties (day of week, time of day,
month, timezone), walks each output's tree to a leaf, and returns the
prediction together with the decision rules that led to it. A generator
merges the decisions of several agents' trees into one.

# Concept

The engine is pure: trees are immutable once parsed, contexts are private to
each call, and no I/O happens while deciding. Trees can be parsed from bytes
or served by a loader (a Loam directory, Redis, memory) through a cache that
follows loader change notifications.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/domain"
	)

	func main() {
		// Serve trees from ./trees (JSON, YAML or Markdown front matter).
		eng, err := arbor.New("./trees")
		if err != nil {
			log.Fatal(err)
		}

		t, _ := domain.NewTime(1489998174, "+01:00")
		d, err := eng.DecideByID(context.Background(), "lamp", domain.Context{"presence": "home"}, &t)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(d.Value("lightbulb_color"))
	}
*/
package arbor
