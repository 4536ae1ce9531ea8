package models

import (
	"fmt"
	"math"
)

// Region is a rectangle in an image that contributed to a detection.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectionResult is the outcome of one successful analysis call. Treat it
// as immutable once built.
type DetectionResult struct {
	IsSynthetic bool     `json:"isDeepfake"`
	Confidence  float64  `json:"confidence"`
	Regions     []Region `json:"areas,omitempty"`
}

// NewDetectionResult clamps confidence to [0,100] and copies regions.
func NewDetectionResult(synthetic bool, confidence float64, regions []Region) DetectionResult {
	if math.IsNaN(confidence) || confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	var rs []Region
	if len(regions) > 0 {
		rs = make([]Region, len(regions))
		copy(rs, regions)
	}
	return DetectionResult{
		IsSynthetic: synthetic,
		Confidence:  confidence,
		Regions:     rs,
	}
}

// Clone returns a copy that shares no slices with r.
func (r DetectionResult) Clone() DetectionResult {
	return NewDetectionResult(r.IsSynthetic, r.Confidence, r.Regions)
}

func (r DetectionResult) Verdict() string {
	if r.IsSynthetic {
		return "Deepfake Detected"
	}
	return "Authentic Media"
}

func (r DetectionResult) ConfidenceText() string {
	return fmt.Sprintf("%.2f%%", r.Confidence)
}

// Indicators lists the manipulation cues shown alongside a synthetic verdict.
func (r DetectionResult) Indicators() []string {
	if !r.IsSynthetic {
		return nil
	}
	return []string{"Facial features", "Unnatural movements", "Inconsistent lighting"}
}
