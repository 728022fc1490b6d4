// Package fit finds an encoding configuration for a decoded image that
// fits under a byte budget at the highest possible fidelity. It never
// changes pixel dimensions: the only degrees of freedom are the fidelity
// level and the encoder knobs in the variant table.
//
// The search is a pure function of its inputs. The actual encoder is
// injected as an EncodeFunc, so both the HTTP host and the batch host
// share one implementation and one test suite.
package fit

import (
	"context"
	"errors"
	"fmt"
	"image"
)

const (
	// FidelityFloor and FidelityCeil bound the usable fidelity scale.
	// Inputs outside this range are clamped before any encode call.
	FidelityFloor = 0.1
	FidelityCeil  = 1.0

	// maxProbes caps the binary-search encodes per variant, beyond the
	// base and min checks.
	maxProbes = 10

	// convergence stops the search once the fidelity interval is this
	// narrow; finer steps do not change the output size meaningfully.
	convergence = 0.015
)

var (
	// ErrFidelityOrder is returned when the minimum fidelity exceeds the
	// base fidelity after clamping.
	ErrFidelityOrder = errors.New("fit: min fidelity above base fidelity")
	// ErrNegativeTarget is returned for a negative byte target. Zero
	// means unconstrained.
	ErrNegativeTarget = errors.New("fit: negative target size")
	// ErrNilEncoder is returned when no encode function is supplied.
	ErrNilEncoder = errors.New("fit: nil encode function")
)

// EncodeFunc encodes img with the given variant and fidelity and returns
// the encoded bytes. It must be deterministic for the whole search to be
// deterministic, and it must not mutate img or change its dimensions.
type EncodeFunc func(ctx context.Context, img image.Image, v Variant, fidelity float64) ([]byte, error)

// Params configures one search. TargetBytes of zero means unconstrained:
// a single encode at BaseFidelity with the first table variant.
type Params struct {
	TargetBytes   int64
	BaseFidelity  float64
	MinFidelity   float64
	StripMetadata bool
}

// Result is the outcome of a search. Pass reports whether Data fits the
// configured target; an unattainable target is Pass == false, never an
// error, so one stubborn image cannot abort a batch.
type Result struct {
	Data     []byte
	Fidelity float64
	Variant  Variant
	Pass     bool
	// Probes counts every encode call made during the search.
	Probes int
}

// Size returns the encoded output size in bytes.
func (r *Result) Size() int64 { return int64(len(r.Data)) }

// Search drives the variant table in priority order and returns the
// first variant/fidelity combination that meets the target (first-fit by
// table order, not global best across variants: the table order already
// encodes the preference, so later variants are only explored when
// earlier ones provably cannot fit).
//
// When no variant fits even at MinFidelity, Search returns the smallest
// BaseFidelity encode seen across all variants with Pass == false: the
// system fails honestly at high fidelity rather than degrading below the
// permitted floor.
//
// Cancellation is checked between encode probes only; a mid-encode
// context expiry is not observed until the probe returns.
func Search(ctx context.Context, img image.Image, encode EncodeFunc, p Params) (*Result, error) {
	if encode == nil {
		return nil, ErrNilEncoder
	}
	if p.TargetBytes < 0 {
		return nil, ErrNegativeTarget
	}
	baseFid := ClampFidelity(p.BaseFidelity)
	minFid := ClampFidelity(p.MinFidelity)
	if minFid > baseFid {
		return nil, ErrFidelityOrder
	}

	probes := 0
	probe := func(v Variant, fidelity float64) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probes++
		data, err := encode(ctx, img, v, fidelity)
		if err != nil {
			return nil, fmt.Errorf("fit: encode %s at %.3f: %w", v, fidelity, err)
		}
		return data, nil
	}

	table := Variants(p.StripMetadata)

	// Unconstrained: nothing to search.
	if p.TargetBytes == 0 {
		data, err := probe(table[0], baseFid)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Fidelity: baseFid, Variant: table[0], Pass: true, Probes: probes}, nil
	}

	target := p.TargetBytes
	var fallback *Result
	for _, v := range table {
		// No-compromise exit: the base encode already fits.
		data, err := probe(v, baseFid)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) <= target {
			return &Result{Data: data, Fidelity: baseFid, Variant: v, Pass: true, Probes: probes}, nil
		}
		if fallback == nil || int64(len(data)) < fallback.Size() {
			fallback = &Result{Data: data, Fidelity: baseFid, Variant: v, Pass: false}
		}
		if baseFid == minFid {
			// Degenerate interval: the base encode decided this variant.
			continue
		}

		found, err := searchVariant(probe, v, target, baseFid, minFid)
		if err != nil {
			return nil, err
		}
		if found != nil {
			found.Probes = probes
			return found, nil
		}
	}

	fallback.Probes = probes
	return fallback, nil
}

// searchVariant runs the bounded binary search for one variant. The
// caller has already established that baseFid does not fit. A nil result
// means the variant is infeasible: even minFid exceeds the target.
func searchVariant(probe func(Variant, float64) ([]byte, error), v Variant, target int64, baseFid, minFid float64) (*Result, error) {
	data, err := probe(v, minFid)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > target {
		return nil, nil
	}

	// minFid fits; search upward for the highest fidelity that still does.
	bestData, bestFid := data, minFid
	lo, hi := minFid, baseFid
	for i := 0; i < maxProbes && hi-lo > convergence; i++ {
		mid := (lo + hi) / 2
		data, err := probe(v, mid)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) <= target {
			bestData, bestFid = data, mid
			lo = mid
		} else {
			hi = mid
		}
	}
	return &Result{Data: bestData, Fidelity: bestFid, Variant: v, Pass: true}, nil
}

// ClampFidelity forces f into the permitted fidelity range. Out-of-range
// values never reach the encoder.
func ClampFidelity(f float64) float64 {
	if f < FidelityFloor {
		return FidelityFloor
	}
	if f > FidelityCeil {
		return FidelityCeil
	}
	return f
}
