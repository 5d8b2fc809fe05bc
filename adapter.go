package nexus

// Kind labels a pipeline for diagnostics. It has no effect on behaviour:
// all per-format logic lives in the stages, so a JSON adapter and a CSV
// adapter process any input identically.
type Kind string

// Pipeline kinds.
const (
	KindGeneric Kind = "generic"
	KindJSON    Kind = "JSON"
	KindCSV     Kind = "CSV"
	KindStream  Kind = "stream"
)

// ParseKind maps a configuration label to a Kind. The empty label is
// KindGeneric.
func ParseKind(label string) (Kind, bool) {
	switch Kind(label) {
	case "", KindGeneric:
		return KindGeneric, true
	case KindJSON, "json":
		return KindJSON, true
	case KindCSV, "csv":
		return KindCSV, true
	case KindStream, "Stream", "STREAM":
		return KindStream, true
	default:
		return "", false
	}
}

// NewJSONAdapter creates a pipeline labelled as handling JSON-like input.
func NewJSONAdapter(id Name, stages ...Stage) *Pipeline {
	return NewPipeline(id, stages...).WithKind(KindJSON)
}

// NewCSVAdapter creates a pipeline labelled as handling CSV-like input.
func NewCSVAdapter(id Name, stages ...Stage) *Pipeline {
	return NewPipeline(id, stages...).WithKind(KindCSV)
}

// NewStreamAdapter creates a pipeline labelled as handling numeric streams.
func NewStreamAdapter(id Name, stages ...Stage) *Pipeline {
	return NewPipeline(id, stages...).WithKind(KindStream)
}

// NewStandardPipeline creates a pipeline of kind with the three built-in
// stages: InputStage, TransformStage and OutputStage.
func NewStandardPipeline(id Name, kind Kind) *Pipeline {
	return NewPipeline(id, InputStage{}, TransformStage{}, OutputStage{}).WithKind(kind)
}
