// Package grouping merges fragmented OCR detections into coherent text blocks.
//
// Detections coming back from a recognition engine are word- or line-level
// fragments; this package clusters them with proximity heuristics over a
// disjoint-set forest so that downstream consumers see whole blocks instead
// of scattered boxes.
package grouping

import (
	"math"

	"github.com/overlaykit/specocr/utils/disjoint_set"
)

// DetectionBox is a single raw detection. It is immutable input: Group never
// mutates the boxes it is handed.
type DetectionBox struct {
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Text       string
	Confidence float64
}

// CenterX returns the horizontal center of the box.
func (b DetectionBox) CenterX() float64 {
	return b.X + b.Width/2
}

// CenterY returns the vertical center of the box.
func (b DetectionBox) CenterY() float64 {
	return b.Y + b.Height/2
}

// Right returns the right edge of the box.
func (b DetectionBox) Right() float64 {
	return b.X + b.Width
}

// Fixed multipliers applied to the configured base distance when deriving
// per-call thresholds.
const (
	horizontalMultiplier       = 2.0
	verticalMultiplier         = 3.0
	extendedVerticalMultiplier = 1.5

	// Caps relative to the taller box of a pair; they keep the wrapped-line
	// and paragraph heuristics from jumping across unrelated rows of text.
	wrappedLineHeightCap = 2.5
	paragraphHeightCap   = 4.0

	// Horizontal slack for the wrapped-line gap and paragraph left-alignment
	// checks, relative to the wider box of a pair.
	wrappedLineGapRatio   = 0.8
	paragraphAlignedRatio = 1.0
)

// proximityThresholds are derived once per Group call from the base distance.
type proximityThresholds struct {
	horizontal       float64
	vertical         float64
	extendedVertical float64
}

func deriveThresholds(baseDistance float64) proximityThresholds {
	vertical := baseDistance * verticalMultiplier
	return proximityThresholds{
		horizontal:       baseDistance * horizontalMultiplier,
		vertical:         vertical,
		extendedVertical: vertical * extendedVerticalMultiplier,
	}
}

// Group clusters detections into text blocks. Two boxes end up in the same
// block when any proximity heuristic links them, directly or transitively.
//
// The heuristics are deliberately permissive: if any one of same-row,
// wrapped-line or same-paragraph matches, the pair is merged. Spatially close
// but logically distinct blocks (two adjacent UI labels, say) can therefore
// over-merge; callers that need finer separation must post-split.
//
// Group is a pure function of its inputs; the disjoint-set forest it builds
// lives only for this call. Group order and member order are unspecified;
// callers needing spatial order must re-sort. Cost is O(n²) over the pairwise
// heuristic checks, fine for the tens of boxes a frame produces.
func Group(detections []DetectionBox, baseDistance float64) [][]DetectionBox {
	if len(detections) == 0 {
		return nil
	}
	if len(detections) == 1 {
		return [][]DetectionBox{{detections[0]}}
	}

	thresholds := deriveThresholds(baseDistance)
	forest := disjoint_set.NewForest(len(detections))

	for i := 0; i < len(detections); i++ {
		for j := i + 1; j < len(detections); j++ {
			if shouldMerge(detections[i], detections[j], thresholds) {
				forest.Union(i, j)
			}
		}
	}

	groups := make([][]DetectionBox, 0, forest.CountSets())
	for _, indices := range forest.Groups() {
		block := make([]DetectionBox, 0, len(indices))
		for _, idx := range indices {
			block = append(block, detections[idx])
		}
		groups = append(groups, block)
	}

	return groups
}

// shouldMerge reports whether any of the three proximity heuristics links
// boxes a and b.
func shouldMerge(a, b DetectionBox, t proximityThresholds) bool {
	deltaX := math.Abs(a.CenterX() - b.CenterX())
	deltaY := math.Abs(a.CenterY() - b.CenterY())

	maxWidth := math.Max(a.Width, b.Width)
	maxHeight := math.Max(a.Height, b.Height)

	// Overlap of the horizontal projections; negative means a gap.
	overlap := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
	gap := -overlap

	// Same row: vertically within one box height, horizontally near.
	if deltaY <= a.Height && deltaX <= t.horizontal {
		return true
	}

	// Wrapped line: the next line of the same block, either overlapping
	// horizontally or separated by a small gap.
	if deltaY <= t.vertical &&
		deltaY <= wrappedLineHeightCap*maxHeight &&
		(overlap > 0 || gap <= wrappedLineGapRatio*maxWidth) {
		return true
	}

	// Same paragraph: farther apart vertically but left-aligned or
	// overlapping, as consecutive paragraph lines are.
	if deltaY <= t.extendedVertical &&
		deltaY <= paragraphHeightCap*maxHeight &&
		(overlap > 0 || math.Abs(a.X-b.X) <= maxWidth*paragraphAlignedRatio) {
		return true
	}

	return false
}
