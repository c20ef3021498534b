package jit

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// Feature is a CPU capability the emitters can be gated on.
type Feature int

//go:generate go tool enumer -type=Feature -trimprefix=Feature -output=gen_feature_enumer.go cpu.go

const (
	FeatureSSE Feature = iota
	FeatureSSE2
	FeatureSSE3
	FeatureSSSE3
	FeatureSSE41
	FeatureSSE42
	FeatureAVX
	FeatureAVX2
	FeatureFMA3
	FeatureAVX512F

	// FeatureZeroIdiom enables zeroing registers via self-XOR instead of
	// loading a zero constant from memory. Not a hardware capability; it can
	// be cleared per emission to force constant loads.
	FeatureZeroIdiom

	numFeatures
)

// Features is a set of Feature bits.
type Features uint32

// Set returns the feature set with f added.
func (s Features) Set(f Feature) Features { return s | 1<<uint(f) }

// Clear returns the feature set with f removed.
func (s Features) Clear(f Feature) Features { return s &^ (1 << uint(f)) }

// Has reports whether f is in the set.
func (s Features) Has(f Feature) bool { return s&(1<<uint(f)) != 0 }

// String lists the enabled features, e.g. "SSE|SSE2|AVX|ZeroIdiom".
func (s Features) String() string {
	var names []string
	for f := Feature(0); f < numFeatures; f++ {
		if s.Has(f) {
			names = append(names, f.String())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// MakeFeatures builds a feature set from individual features.
func MakeFeatures(features ...Feature) Features {
	var s Features
	for _, f := range features {
		s = s.Set(f)
	}
	return s
}

// Detect returns the feature set of the host CPU, with the zero idiom
// enabled. On non-x86 hosts no hardware feature is set, only
// FeatureZeroIdiom: emission for any feature level still works, execution
// does not.
func Detect() Features {
	var s Features
	for f, has := range map[Feature]bool{
		FeatureSSE:     cpu.X86.HasSSE2, // SSE is implied by the amd64 baseline
		FeatureSSE2:    cpu.X86.HasSSE2,
		FeatureSSE3:    cpu.X86.HasSSE3,
		FeatureSSSE3:   cpu.X86.HasSSSE3,
		FeatureSSE41:   cpu.X86.HasSSE41,
		FeatureSSE42:   cpu.X86.HasSSE42,
		FeatureAVX:     cpu.X86.HasAVX,
		FeatureAVX2:    cpu.X86.HasAVX2,
		FeatureFMA3:    cpu.X86.HasFMA,
		FeatureAVX512F: cpu.X86.HasAVX512F,
	} {
		if has {
			s = s.Set(f)
		}
	}
	return s.Set(FeatureZeroIdiom)
}
