package convert

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// lineDiff compares two versions of a file line by line. Text of every
// returned diff holds one rune per line.
func lineDiff(from, to []byte) (*diffmatchpatch.DiffMatchPatch, []diffmatchpatch.Diff, []string) {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(string(from), string(to))
	return dmp, dmp.DiffMainRunes(src, dst, false), lines
}

// changeStats counts lines added and removed by rewrite.
func changeStats(from, to []byte) (added, removed int) {
	_, diffs, _ := lineDiff(from, to)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += utf8.RuneCountInString(d.Text)
		}
	}
	return added, removed
}

// patchText renders rewrite as patch stored in debug report.
func patchText(from, to []byte) string {
	dmp, diffs, lines := lineDiff(from, to)
	return dmp.PatchToText(dmp.PatchMake(string(from), dmp.DiffCharsToLines(diffs, lines)))
}
