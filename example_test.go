package awaken_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/awaken"
)

func ExampleEngine_Classify() {
	eng, err := awaken.New()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(eng.Classify("INFJ"))
	fmt.Println(eng.Classify("intj"))
	// Output:
	// Enhancer
	// Specialist
}

func ExampleEngine_Walk() {
	eng, err := awaken.New()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	defer eng.Close(ctx)

	view, err := eng.Walk(ctx, "example", "INTJ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(view.Archetype)
	fmt.Println(view.ShareText)
	// Output:
	// Specialist
	// I discovered my Nen type! I'm a Specialist type. Find out yours!
}
