/*
Package domain contains the core domain models of the Arbor decision engine.

It defines the decision tree as a closed set of node and predicate variants,
the configuration attached to every tree, the observation context, and the
decision produced by an evaluation. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Time: An instant (epoch seconds) paired with a fixed UTC offset in minutes.
  - Configuration: The typed property declarations a tree was trained against.
  - Tree: One root Node per output property; a Node is a DecisionNode or a Leaf.
  - Predicate: RangePredicate, EqualityPredicate or MissingPredicate.
  - Decision: The predictions per output plus the decision rules that led to them.
*/
package domain
