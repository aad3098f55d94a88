package seasonality

// defaultRules is the built-in seasonal window table. Scores are heuristic
// tendencies on a roughly [-1, 1] per-window scale.
func defaultRules() map[string][]Window {
	return map[string][]Window{
		"CL": {
			{StartMonth: 2, EndMonth: 6, Score: 0.6, Note: "Spring demand / driving season buildup"},
			{StartMonth: 9, EndMonth: 11, Score: -0.5, Note: "Refinery maintenance / demand slowdown"},
		},
		"ZS": {
			{StartMonth: 4, EndMonth: 6, Score: -0.6, Note: "Planting uncertainty"},
			{StartMonth: 10, EndMonth: 12, Score: 0.5, Note: "Post-harvest strength"},
		},
		"ZC": {
			{StartMonth: 5, EndMonth: 7, Score: -0.5, Note: "Crop progress pressure"},
			{StartMonth: 11, EndMonth: 2, Score: 0.4, Note: "Storage & demand season"},
		},
		"ZW": {
			{StartMonth: 6, EndMonth: 8, Score: -0.4, Note: "Harvest pressure"},
		},
		"GC": {
			{StartMonth: 8, EndMonth: 10, Score: 0.4, Note: "Jewelry & festival demand"},
		},
		"SI": {
			{StartMonth: 1, EndMonth: 3, Score: 0.3, Note: "Industrial restocking"},
		},
		"KC": {
			{StartMonth: 1, EndMonth: 3, Score: 0.5, Note: "Frost risk in Brazil / supply concerns"},
			{StartMonth: 7, EndMonth: 9, Score: -0.4, Note: "Harvest pressure from Brazil"},
		},
	}
}
