/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing Arbor trees.

It allows developers to define decision trees using a type-safe, fluent builder pattern
instead of hand-writing JSON documents. This is particularly useful for unit testing,
embedding small policies in code, and leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"github.com/aretw0/arbor/pkg/domain"
		"github.com/aretw0/arbor/pkg/dsl"
	)

	func main() {
		b := dsl.New().
			Context("speed", domain.TypeContinuous).
			Context("label", domain.TypeEnum).
			Output("label")

		b.Tree("label", dsl.Split("speed",
			dsl.Less(10, dsl.Leaf("slow").Confidence(0.9)),
			dsl.AtLeast(10, dsl.Leaf("fast")),
		))

		// The resulting tree is parsed and validated like a loaded document.
		tree, err := b.Build()
		// ... pass tree to arbor.Engine.Decide(...)
	}
*/
package dsl
