package fit

import "fmt"

// ChromaSubsampling selects how aggressively the encoder decimates
// the chroma planes.
type ChromaSubsampling int

const (
	// Chroma444 keeps full-resolution chroma.
	Chroma444 ChromaSubsampling = iota
	// Chroma420 halves chroma resolution in both axes.
	Chroma420
)

func (c ChromaSubsampling) String() string {
	if c == Chroma420 {
		return "4:2:0"
	}
	return "4:4:4"
}

// Variant is one fixed combination of encoder-level knobs. Fidelity is
// deliberately not part of a Variant; it is the search dimension.
type Variant struct {
	Chroma        ChromaSubsampling
	Progressive   bool
	StripMetadata bool
}

// String returns a short identifier like "4:4:4/baseline" used in
// reports, response headers and logs.
func (v Variant) String() string {
	scan := "baseline"
	if v.Progressive {
		scan = "progressive"
	}
	return fmt.Sprintf("%s/%s", v.Chroma, scan)
}

// Variants returns the candidate table in priority order: uniform chroma
// before subsampled, baseline before progressive. The order is the
// tie-break authority for the selector (the first variant that can meet
// the target wins) and must never be reordered.
func Variants(stripMetadata bool) []Variant {
	return []Variant{
		{Chroma: Chroma444, Progressive: false, StripMetadata: stripMetadata},
		{Chroma: Chroma444, Progressive: true, StripMetadata: stripMetadata},
		{Chroma: Chroma420, Progressive: false, StripMetadata: stripMetadata},
		{Chroma: Chroma420, Progressive: true, StripMetadata: stripMetadata},
	}
}
