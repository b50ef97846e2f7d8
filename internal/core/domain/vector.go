package domain

// Vector is a fixed-dimension embedding.
// Vectors are treated as immutable once handed to the selector.
type Vector []float32

// Dim returns the number of components.
func (v Vector) Dim() int {
	return len(v)
}

// Float64 returns a float64 copy of the vector.
func (v Vector) Float64() []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Candidate is a retrieved fragment offered to the selector.
// Position in the candidate sequence is significant: earlier candidates
// win ties.
type Candidate struct {
	// ID identifies the fragment within its source.
	ID string

	// Vector is the fragment embedding.
	Vector Vector

	// Metadata is passed through unmodified apart from the selection flag.
	Metadata map[string]any
}

// Metadata keys written or read by the pipeline.
const (
	// MetadataKeyText holds the fragment text.
	MetadataKeyText = "text"

	// MetadataKeySelected flags whether the selector chose the fragment.
	MetadataKeySelected = "selected"

	// MetadataKeyParentDocID links a fragment to its source document.
	MetadataKeyParentDocID = "parent_doc_id"
)

// Text returns the fragment text from metadata, or "" if absent.
func (c Candidate) Text() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetadataKeyText].(string)
	return s
}

// Selected reports the selection flag from metadata.
func (c Candidate) Selected() bool {
	if c.Metadata == nil {
		return false
	}
	b, _ := c.Metadata[MetadataKeySelected].(bool)
	return b
}

// Vectors returns the candidate vectors in order.
func Vectors(candidates []Candidate) []Vector {
	out := make([]Vector, len(candidates))
	for i, c := range candidates {
		out[i] = c.Vector
	}
	return out
}

// AttachSelection returns copies of candidates whose metadata carries the
// selection flag. A flag already present in a candidate's metadata is kept.
// The input candidates and their metadata maps are not modified.
func AttachSelection(candidates []Candidate, result *SelectionResult) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		meta := make(map[string]any, len(c.Metadata)+1)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		if _, ok := meta[MetadataKeySelected]; !ok {
			meta[MetadataKeySelected] = result != nil && result.Contains(i)
		}
		out[i] = Candidate{ID: c.ID, Vector: c.Vector, Metadata: meta}
	}
	return out
}
