package router

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// HunkBoundaries computes the new-text line numbers where a changed hunk
// begins, diffing oldText against newText. A diff-viewer-style overlay's
// widget handler uses this to implement next-hunk/prev-hunk paging; the
// router itself never renders the diff, only routes to these boundaries.
func HunkBoundaries(oldText, newText string) []int {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var bounds []int
	line := 0
	inHunk := false
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			inHunk = false
			line += strings.Count(d.Text, "\n")
		case diffmatchpatch.DiffInsert:
			if !inHunk {
				bounds = append(bounds, line)
				inHunk = true
			}
			line += strings.Count(d.Text, "\n")
		case diffmatchpatch.DiffDelete:
			if !inHunk {
				bounds = append(bounds, line)
				inHunk = true
			}
		}
	}
	return bounds
}

// NextHunk returns the smallest boundary strictly after line, or the last
// boundary if already past it (diff-viewer's PageDown-to-next-hunk).
func NextHunk(bounds []int, line int) (int, bool) {
	for _, b := range bounds {
		if b > line {
			return b, true
		}
	}
	if len(bounds) > 0 {
		return bounds[len(bounds)-1], true
	}
	return line, false
}

// PrevHunk returns the largest boundary strictly before line, or the first
// boundary if already before it (diff-viewer's PageUp-to-prev-hunk).
func PrevHunk(bounds []int, line int) (int, bool) {
	for i := len(bounds) - 1; i >= 0; i-- {
		if bounds[i] < line {
			return bounds[i], true
		}
	}
	if len(bounds) > 0 {
		return bounds[0], true
	}
	return line, false
}
