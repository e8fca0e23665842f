package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"procurement-desk/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// LineDrafter turns a free-text requisition into draft purchase request lines.
type LineDrafter interface {
	DraftLines(ctx context.Context, requisition string, catalog []core.Item) (*LineDraft, error)
}

// LineDraft is the structured answer of the model.
type LineDraft struct {
	Lines         []DraftLine `json:"lines" jsonschema_description:"One entry per requested item. Empty when nothing in the catalog matches."`
	Clarification string      `json:"clarification" jsonschema_description:"A question for the requester when the request is ambiguous, otherwise an empty string"`
}

// DraftLine is one suggested line.
type DraftLine struct {
	ItemCode string `json:"item_code" jsonschema_description:"The exact it_code from the provided item catalog"`
	Quantity string `json:"quantity" jsonschema_description:"Requested quantity as a decimal string, e.g. \"12\" or \"2.5\""`
	Details  string `json:"details" jsonschema_description:"Specification notes for the line (size, grade, brand), or an empty string"`
	Reason   string `json:"reason" jsonschema_description:"Why this catalog item matches the request"`
}

type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(shared.ChatModelGPT4oMini)
	}
	return &Agent{client: &client, model: model}
}

func (a *Agent) DraftLines(ctx context.Context, requisition string, catalog []core.Item) (*LineDraft, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("item catalog is empty")
	}

	var sb strings.Builder
	for _, it := range catalog {
		fmt.Fprintf(&sb, "%s | %s", it.Code, it.Name)
		if it.Details != "" {
			fmt.Fprintf(&sb, " | %s", it.Details)
		}
		sb.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are a purchasing assistant.
Your goal is to turn a requisition written in plain language into purchase request lines.
Rules:
1. Use ONLY item codes from the catalog below. Never invent codes.
2. Use each item code at most once; add quantities up if an item is mentioned twice.
3. Quantities must be positive decimal strings.
4. If an item cannot be matched, leave it out and ask about it in clarification.

Item catalog (code | name | details):
%s
Requisition: %s`, sb.String(), requisition)

	schemaMap, err := draftSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "purchase_request_lines",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Draft purchase request lines matched against the item catalog"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var draft LineDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	return &draft, nil
}

func draftSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&LineDraft{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
