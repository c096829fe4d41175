/*
Package runner streams batch decisions between newline-delimited JSON and
the engine.

Each input line is one row: either {"context": {...}, "time": {...}} or a bare
context object. Rows are read in chunks, evaluated in parallel by a BatchFunc,
and written back by a Handler in input order. A line that cannot be decoded
becomes a failed result; it never stops the stream.

# Key Components

  - Runner: reads rows, drives the batch and reports a Summary.
  - Handler: decouples how results are presented (JSON, text).
  - JSONHandler: writes one JSON object per line, for pipelines.
  - TextHandler: writes one human-readable line per result.

# Usage

	eng, _ := arbor.New("./trees")
	tree, _ := eng.Tree(ctx, "lamp")

	r := runner.NewRunner(
		runner.ForEngine(eng, eng.ForTree(tree)),
		runner.WithHandler(runner.NewJSONHandler(os.Stdout)),
	)

	summary, err := r.Run(ctx, os.Stdin)
*/
package runner
