package ai

// ScoreSchema is the response shape for job scoring. The range is enforced
// by the scorer rather than the schema so out-of-range values can be
// defaulted instead of rejected as malformed.
var ScoreSchema = &Schema{
	Name: "job_match",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"score":  map[string]any{"type": "number"},
			"reason": map[string]any{"type": "string"},
		},
		"required": []string{"score", "reason"},
	},
}

// ContactsSchema is the response shape for networking suggestions.
var ContactsSchema = &Schema{
	Name: "networking_contacts",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"contacts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"profile_type":     map[string]any{"type": "string"},
						"why":              map[string]any{"type": "string"},
						"search_tip":       map[string]any{"type": "string"},
						"message_template": map[string]any{"type": "string"},
					},
					"required": []string{"profile_type", "why", "search_tip", "message_template"},
				},
			},
		},
		"required": []string{"contacts"},
	},
}
