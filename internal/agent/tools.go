package agent

import (
	"context"

	"github.com/andluizsouza/ai-agent-personalization/internal/llm"
	"github.com/andluizsouza/ai-agent-personalization/internal/tools/brewerydir"
	"github.com/andluizsouza/ai-agent-personalization/internal/tools/profile"
	"github.com/andluizsouza/ai-agent-personalization/internal/tools/webexplorer"
)

// ProfileTool exposes client profile lookups to the model.
type ProfileTool struct {
	runner *profile.Runner
}

// NewProfileTool wraps a profile runner as a planner tool.
func NewProfileTool(runner *profile.Runner) *ProfileTool {
	return &ProfileTool{runner: runner}
}

func (t *ProfileTool) Declaration() llm.FunctionDeclaration {
	return llm.FunctionDeclaration{
		Name: "get_client_profile",
		Description: "Retrieve a client profile from the customers database: location, " +
			"preferred brewery types, recently ordered beers and brewery purchase history. " +
			"Looks up by client_id first, falling back to postal_code plus client_name.",
		Parameters: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"client_id": {
					Type:        "string",
					Description: "Unique client identifier, e.g. 'CLT-LNU555'",
				},
				"postal_code": {
					Type:        "string",
					Description: "US postal code, used with client_name when client_id is unknown",
				},
				"client_name": {
					Type:        "string",
					Description: "Business name of the client, used with postal_code",
				},
			},
		},
	}
}

func (t *ProfileTool) Call(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	result := t.runner.GetClientProfile(ctx,
		stringArg(args, "client_id"),
		stringArg(args, "postal_code"),
		stringArg(args, "client_name"))
	return toMap(result)
}

// BreweryTool exposes directory searches to the model.
type BreweryTool struct {
	finder *brewerydir.Finder
}

// NewBreweryTool wraps a directory finder as a planner tool.
func NewBreweryTool(finder *brewerydir.Finder) *BreweryTool {
	return &BreweryTool{finder: finder}
}

func (t *BreweryTool) Declaration() llm.FunctionDeclaration {
	return llm.FunctionDeclaration{
		Name: "search_breweries",
		Description: "Search breweries by location, type or name. With filter_history=true " +
			"it returns only NEW breweries not in the client's purchase history; with " +
			"filter_history=false it also returns known breweries, for info lookups.",
		Parameters: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"city":  {Type: "string", Description: "City name, e.g. 'San Diego'"},
				"state": {Type: "string", Description: "US state name or two-letter code"},
				"brewery_type": {
					Type:        "string",
					Description: "Brewery type filter",
					Enum:        []string{"micro", "nano", "regional", "brewpub", "large", "planning", "bar", "contract", "proprietor", "closed"},
				},
				"brewery_name": {Type: "string", Description: "Specific brewery name to search for"},
				"brewery_history": {
					Type:        "array",
					Description: "Brewery names already in the client's purchase history",
					Items:       &llm.Schema{Type: "string"},
				},
				"filter_history": {
					Type:        "boolean",
					Description: "Exclude breweries in brewery_history from the results",
				},
			},
		},
	}
}

func (t *BreweryTool) Call(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	result := t.finder.Search(ctx, brewerydir.Query{
		City:          stringArg(args, "city"),
		State:         stringArg(args, "state"),
		Type:          stringArg(args, "brewery_type"),
		Name:          stringArg(args, "brewery_name"),
		History:       stringListArg(args, "brewery_history"),
		FilterHistory: boolArg(args, "filter_history"),
	})
	return toMap(result)
}

// SummaryTool exposes cached website summaries to the model.
type SummaryTool struct {
	explorer *webexplorer.Explorer
}

// NewSummaryTool wraps a web explorer as a planner tool.
func NewSummaryTool(explorer *webexplorer.Explorer) *SummaryTool {
	return &SummaryTool{explorer: explorer}
}

func (t *SummaryTool) Declaration() llm.FunctionDeclaration {
	return llm.FunctionDeclaration{
		Name: "get_website_summary",
		Description: "Get a detailed summary of a brewery website. Served from a semantic " +
			"cache when a fresh entry exists, otherwise generated through grounded web " +
			"search. Only call this after the user confirms they want the summary.",
		Parameters: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"brewery_name": {Type: "string", Description: "Name of the brewery"},
				"url":          {Type: "string", Description: "Brewery website URL"},
				"brewery_type": {Type: "string", Description: "Brewery type, e.g. 'micro'"},
				"address":      {Type: "string", Description: "Full address, for precise search"},
			},
			Required: []string{"brewery_name", "url"},
		},
	}
}

func (t *SummaryTool) Call(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	result := t.explorer.WebsiteSummary(ctx,
		stringArg(args, "brewery_name"),
		stringArg(args, "url"),
		stringArg(args, "brewery_type"),
		stringArg(args, "address"))
	return toMap(result)
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func stringListArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	list := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			list = append(list, s)
		}
	}
	return list
}
