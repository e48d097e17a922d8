package schema

// ComponentRender describes one heuristic component for the weights view.
type ComponentRender struct {
	Key     ComponentKey          `json:"key"`
	Purpose string                `json:"purpose"`
	Weight  float64               `json:"weight"`
	Metrics map[MetricKey]float64 `json:"metrics"`
	Formula string                `json:"formula"`
}

// WeightsRenderModel is the complete view of how a score is assembled.
type WeightsRenderModel struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Components   []ComponentRender `json:"components"`
	Heuristic    string            `json:"heuristic"`
	ModelWeight  float64           `json:"model_weight"`
	BlendFormula string            `json:"blend_formula"`
}
