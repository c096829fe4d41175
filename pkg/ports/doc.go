/*
Package ports defines the driven ports (interfaces) for the Arbor engine.

These interfaces decouple decision logic from where tree documents live, so
the engine can read trees from a Loam directory, Redis or memory alike.

# Key Interfaces

  - TreeLoader: Retrieves raw tree documents by ID (e.g., from Loam or Memory).
  - TreeStore: A TreeLoader that also accepts writes (e.g., Redis).
  - Watchable: Signals that the underlying trees changed.
  - DecisionEngine: The surface the HTTP and MCP adapters drive.
*/
package ports
