// verify-agent sends one requisition to the line drafting model against a small
// fixed catalog and prints the answer. Use it to check OPENAI_API_KEY and the
// response schema without a database.
//
// Usage: go run ./cmd/verify-agent ["<requisition text>"]
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"procurement-desk/internal/ai"
	"procurement-desk/internal/config"
	"procurement-desk/internal/core"
	"procurement-desk/internal/obs"
)

var sampleCatalog = []core.Item{
	{ID: 1, Code: "BLT-M8", Name: "Hex bolt M8 x 40", HSNCode: "7318"},
	{ID: 2, Code: "WSH-M8", Name: "Flat washer M8", HSNCode: "7318"},
	{ID: 3, Code: "GLV-NIT", Name: "Nitrile gloves, box of 100", HSNCode: "4015"},
	{ID: 4, Code: "PPR-A4", Name: "Copier paper A4 75gsm, ream", HSNCode: "4802"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := obs.NewLoggerTo(os.Stderr, "console", cfg.LogLevel)
	if cfg.OpenAIAPIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY not set")
	}

	requisition := "Need 200 M8 bolts with washers for the conveyor repair, and two boxes of gloves."
	if len(os.Args) > 1 {
		requisition = strings.Join(os.Args[1:], " ")
	}

	agent := ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	fmt.Printf("REQUISITION: %s\n", requisition)
	draft, err := agent.DraftLines(context.Background(), requisition, sampleCatalog)
	if err != nil {
		log.Fatal().Err(err).Msg("draft")
	}

	fmt.Printf("\n--- DRAFT ---\n")
	if draft.Clarification != "" {
		fmt.Printf("Clarification: %s\n", draft.Clarification)
	}
	for _, line := range draft.Lines {
		fmt.Printf("- %s x %s  %s (%s)\n", line.ItemCode, line.Quantity, line.Details, line.Reason)
	}
}
