package verify

import "github.com/hyperifyio/a11yscan/internal/cache"

// Criterion is one WCAG 2.1 success criterion.
type Criterion struct {
	ID    string
	Name  string
	Level cache.Level
}

// catalog lists the WCAG 2.1 success criteria in numeric order. Conformance
// is cumulative: an AA audit includes every A criterion, AAA includes all.
var catalog = []Criterion{
	{"1.1.1", "Non-text Content", cache.LevelA},
	{"1.2.1", "Audio-only and Video-only (Prerecorded)", cache.LevelA},
	{"1.2.2", "Captions (Prerecorded)", cache.LevelA},
	{"1.2.3", "Audio Description or Media Alternative (Prerecorded)", cache.LevelA},
	{"1.2.4", "Captions (Live)", cache.LevelAA},
	{"1.2.5", "Audio Description (Prerecorded)", cache.LevelAA},
	{"1.2.6", "Sign Language (Prerecorded)", cache.LevelAAA},
	{"1.2.7", "Extended Audio Description (Prerecorded)", cache.LevelAAA},
	{"1.2.8", "Media Alternative (Prerecorded)", cache.LevelAAA},
	{"1.2.9", "Audio-only (Live)", cache.LevelAAA},
	{"1.3.1", "Info and Relationships", cache.LevelA},
	{"1.3.2", "Meaningful Sequence", cache.LevelA},
	{"1.3.3", "Sensory Characteristics", cache.LevelA},
	{"1.3.4", "Orientation", cache.LevelAA},
	{"1.3.5", "Identify Input Purpose", cache.LevelAA},
	{"1.3.6", "Identify Purpose", cache.LevelAAA},
	{"1.4.1", "Use of Color", cache.LevelA},
	{"1.4.2", "Audio Control", cache.LevelA},
	{"1.4.3", "Contrast (Minimum)", cache.LevelAA},
	{"1.4.4", "Resize Text", cache.LevelAA},
	{"1.4.5", "Images of Text", cache.LevelAA},
	{"1.4.6", "Contrast (Enhanced)", cache.LevelAAA},
	{"1.4.7", "Low or No Background Audio", cache.LevelAAA},
	{"1.4.8", "Visual Presentation", cache.LevelAAA},
	{"1.4.9", "Images of Text (No Exception)", cache.LevelAAA},
	{"1.4.10", "Reflow", cache.LevelAA},
	{"1.4.11", "Non-text Contrast", cache.LevelAA},
	{"1.4.12", "Text Spacing", cache.LevelAA},
	{"1.4.13", "Content on Hover or Focus", cache.LevelAA},
	{"2.1.1", "Keyboard", cache.LevelA},
	{"2.1.2", "No Keyboard Trap", cache.LevelA},
	{"2.1.3", "Keyboard (No Exception)", cache.LevelAAA},
	{"2.1.4", "Character Key Shortcuts", cache.LevelA},
	{"2.2.1", "Timing Adjustable", cache.LevelA},
	{"2.2.2", "Pause, Stop, Hide", cache.LevelA},
	{"2.2.3", "No Timing", cache.LevelAAA},
	{"2.2.4", "Interruptions", cache.LevelAAA},
	{"2.2.5", "Re-authenticating", cache.LevelAAA},
	{"2.2.6", "Timeouts", cache.LevelAAA},
	{"2.3.1", "Three Flashes or Below Threshold", cache.LevelA},
	{"2.3.2", "Three Flashes", cache.LevelAAA},
	{"2.3.3", "Animation from Interactions", cache.LevelAAA},
	{"2.4.1", "Bypass Blocks", cache.LevelA},
	{"2.4.2", "Page Titled", cache.LevelA},
	{"2.4.3", "Focus Order", cache.LevelA},
	{"2.4.4", "Link Purpose (In Context)", cache.LevelA},
	{"2.4.5", "Multiple Ways", cache.LevelAA},
	{"2.4.6", "Headings and Labels", cache.LevelAA},
	{"2.4.7", "Focus Visible", cache.LevelAA},
	{"2.4.8", "Location", cache.LevelAAA},
	{"2.4.9", "Link Purpose (Link Only)", cache.LevelAAA},
	{"2.4.10", "Section Headings", cache.LevelAAA},
	{"2.5.1", "Pointer Gestures", cache.LevelA},
	{"2.5.2", "Pointer Cancellation", cache.LevelA},
	{"2.5.3", "Label in Name", cache.LevelA},
	{"2.5.4", "Motion Actuation", cache.LevelA},
	{"2.5.5", "Target Size", cache.LevelAAA},
	{"2.5.6", "Concurrent Input Mechanisms", cache.LevelAAA},
	{"3.1.1", "Language of Page", cache.LevelA},
	{"3.1.2", "Language of Parts", cache.LevelAA},
	{"3.1.3", "Unusual Words", cache.LevelAAA},
	{"3.1.4", "Abbreviations", cache.LevelAAA},
	{"3.1.5", "Reading Level", cache.LevelAAA},
	{"3.1.6", "Pronunciation", cache.LevelAAA},
	{"3.2.1", "On Focus", cache.LevelA},
	{"3.2.2", "On Input", cache.LevelA},
	{"3.2.3", "Consistent Navigation", cache.LevelAA},
	{"3.2.4", "Consistent Identification", cache.LevelAA},
	{"3.2.5", "Change on Request", cache.LevelAAA},
	{"3.3.1", "Error Identification", cache.LevelA},
	{"3.3.2", "Labels or Instructions", cache.LevelA},
	{"3.3.3", "Error Suggestion", cache.LevelAA},
	{"3.3.4", "Error Prevention (Legal, Financial, Data)", cache.LevelAA},
	{"3.3.5", "Help", cache.LevelAAA},
	{"3.3.6", "Error Prevention (All)", cache.LevelAAA},
	{"4.1.1", "Parsing", cache.LevelA},
	{"4.1.2", "Name, Role, Value", cache.LevelA},
	{"4.1.3", "Status Messages", cache.LevelAA},
}

func levelRank(l cache.Level) int {
	switch l {
	case cache.LevelA:
		return 1
	case cache.LevelAA:
		return 2
	case cache.LevelAAA:
		return 3
	}
	return 0
}

// CriteriaForLevel returns the criteria audited at the given conformance
// level, cumulative over lower levels, in catalog order.
func CriteriaForLevel(level cache.Level) []Criterion {
	max := levelRank(level)
	out := make([]Criterion, 0, len(catalog))
	for _, c := range catalog {
		if levelRank(c.Level) <= max {
			out = append(out, c)
		}
	}
	return out
}

// Batches splits the criteria for level into mini-batches of at most size.
// The batch index is stable for a given level and size, which makes it a
// sound cache-key component.
func Batches(level cache.Level, size int) [][]Criterion {
	if size <= 0 {
		size = DefaultBatchSize
	}
	all := CriteriaForLevel(level)
	var out [][]Criterion
	for start := 0; start < len(all); start += size {
		end := start + size
		if end > len(all) {
			end = len(all)
		}
		out = append(out, all[start:end])
	}
	return out
}
