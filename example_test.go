package arbor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

// ExampleNew_library builds a tree in Go and serves it from memory,
// without reading from the filesystem.
func ExampleNew_library() {
	// 1. Describe the tree with the DSL
	b := dsl.New().
		Context("speed", domain.TypeContinuous).
		Context("label", domain.TypeEnum).
		Output("label")
	b.Tree("label", dsl.Split("speed",
		dsl.Less(10, dsl.Leaf("slow").Confidence(0.9)),
		dsl.AtLeast(10, dsl.Leaf("fast").Confidence(0.8)),
	))

	loader, err := b.Loader("speed")
	if err != nil {
		log.Fatal(err)
	}

	// 2. Initialize the Engine with the custom loader
	eng, err := arbor.New("", arbor.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Decide
	d, err := eng.DecideByID(context.Background(), "speed", domain.Context{"speed": 4}, nil)
	if err != nil {
		log.Fatal(err)
	}

	out := d.Output["label"]
	fmt.Println(out.PredictedValue, *out.Confidence)
	fmt.Println(domain.FormatRule(out.DecisionRules[0], domain.TypeContinuous))

	// Output:
	// slow 0.9
	// speed is less than 10
}

// ExampleEngine_DecideGenerator merges two agents' trees.
func ExampleEngine_DecideGenerator() {
	agent := func(value float64) *domain.Tree {
		b := dsl.New().Context("temp", domain.TypeContinuous).Output("temp")
		b.Tree("temp", dsl.Leaf(value).StandardDeviation(1).Samples(2))
		tree, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}
		return tree
	}

	eng, err := arbor.New("")
	if err != nil {
		log.Fatal(err)
	}

	gen := domain.Generator{Configuration: dsl.New().Context("temp", domain.TypeContinuous).Output("temp").Configuration()}
	d, err := eng.DecideGenerator(context.Background(), gen, []domain.AgentTree{
		{AgentID: "kitchen", Tree: agent(18)},
		{AgentID: "office", Tree: agent(22)},
	}, domain.Context{}, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(d.Value("temp"), *d.Output["temp"].NbSamples)

	// Output:
	// 20 4
}
