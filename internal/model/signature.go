package model

// TopicSignature is the resolved discipline profile of a manuscript
type TopicSignature struct {
	Discipline string   `json:"discipline"`       // Winning subfield
	Field      string   `json:"field,omitempty"`  // Parent field of the subfield
	Confidence float64  `json:"confidence"`       // Winning weight / total weight, in [0,1]
	Source     string   `json:"source"`           // Provenance tag (e.g. "openalex")
	Topics     []string `json:"topics,omitempty"` // Matched topic labels, best first
}

// DisciplineDetection is the client-facing view of a signature
type DisciplineDetection struct {
	Name       string  `json:"name"`
	Field      string  `json:"field,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Detection returns the detection block, or nil for a nil signature
func (s *TopicSignature) Detection() *DisciplineDetection {
	if s == nil {
		return nil
	}
	return &DisciplineDetection{
		Name:       s.Discipline,
		Field:      s.Field,
		Confidence: s.Confidence,
		Source:     s.Source,
	}
}

// WorkSignal is one similar work returned by the similarity lookup
type WorkSignal struct {
	Weight     float64 // Similarity of the work to the manuscript
	Field      string
	Subfield   string
	Topic      string // Primary topic label of the work
	WorksCount int    // Works represented by this row; 0 counts as 1
}
