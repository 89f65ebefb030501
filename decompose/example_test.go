package decompose_test

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/zero-day-ai/docgraph/decompose"
	"github.com/zero-day-ai/docgraph/document"
)

// ExampleIsSimple shows which values stay on the vertex as properties.
func ExampleIsSimple() {
	for _, raw := range []string{`"text"`, `[1, 2]`, `[]`, `{"a": 1}`, `[{"a": 1}]`} {
		v, err := document.DecodeJSON([]byte(raw))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%-10s %v\n", raw, decompose.IsSimple(v))
	}

	// Output:
	// "text"     true
	// [1, 2]     true
	// []         true
	// {"a": 1}   false
	// [{"a": 1}] false
}

// ExampleDecomposer_DecomposeVertex shows the vertex tree of a small document.
func ExampleDecomposer_DecomposeVertex() {
	doc, err := document.DecodeJSON([]byte(`{"name": "Ada", "langs": ["en", "fr"], "address": {"city": "London"}}`))
	if err != nil {
		log.Fatal(err)
	}

	root, err := decompose.New().DecomposeVertex(doc, "person")
	if err != nil {
		log.Fatal(err)
	}

	props, _ := json.Marshal(root.Properties)
	fmt.Println(root.Label, string(props))
	fmt.Println(root.Children[0].Names())

	target, _ := root.Children[0].Get("address")
	fmt.Println(target.Vertex().Label, target.Vertex().Properties["city"])

	// Output:
	// person {"langs":["en","fr"],"name":"Ada"}
	// [address]
	// address London
}
