package inference

import (
	"maps"
	"math"
	"slices"
)

// Note is one decoded note segment.
type Note struct {
	MIDI   float64
	Frames int
	Rest   bool
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// decodeBlurred reads a frame of Gaussian-blurred class probabilities back to
// a continuous value. Classes are evenly spaced over [vmin, vmax]; the value
// is the probability-weighted mean of the classes within deviation of the
// most likely one. The frame is a rest when no class reaches threshold.
func decodeBlurred(probs []float64, vmin, vmax, deviation, threshold float64) (float64, bool) {
	bins := len(probs)
	if bins == 0 {
		return 0, true
	}

	peak := argmax(probs)
	if probs[peak] < threshold {
		return 0, true
	}
	if bins == 1 {
		return vmin, false
	}

	interval := (vmax - vmin) / float64(bins-1)
	width := int(deviation / interval)
	lo, hi := max(peak-width, 0), min(peak+width, bins-1)

	var num, den float64
	for i := lo; i <= hi; i++ {
		num += probs[i] * (vmin + float64(i)*interval)
		den += probs[i]
	}
	return num / den, false
}

// segment assigns each frame to a note: a frame whose boundary probability
// reaches threshold starts a new note. Frame 0 always starts note 0.
func segment(bounds []float64, threshold float64) []int {
	notes := make([]int, len(bounds))
	for t := 1; t < len(bounds); t++ {
		notes[t] = notes[t-1]
		if bounds[t] >= threshold {
			notes[t]++
		}
	}
	return notes
}

// mergeMean collapses frames into notes. A note is a rest when at least half
// of its frames are rests; otherwise its pitch is the mean of its voiced
// frames.
func mergeMean(values []float64, rests []bool, noteOf []int) []Note {
	var notes []Note
	var sum float64
	var voiced int

	flush := func() {
		n := &notes[len(notes)-1]
		n.Rest = 2*(n.Frames-voiced) >= n.Frames
		if !n.Rest {
			n.MIDI = sum / float64(voiced)
		}
		sum, voiced = 0, 0
	}

	for t, idx := range noteOf {
		if idx >= len(notes) {
			if len(notes) > 0 {
				flush()
			}
			notes = append(notes, Note{})
		}
		notes[idx].Frames++
		if !rests[t] {
			sum += values[t]
			voiced++
		}
	}
	if len(notes) > 0 {
		flush()
	}
	return notes
}

// mergeVote collapses frame classes into notes by majority vote. Ties go to
// the lower class. restClass marks unvoiced frames; a note is a rest when at
// least half of its frames are.
func mergeVote(classes []int, restClass int, noteOf []int) []Note {
	var notes []Note
	votes := make(map[int]int)

	flush := func() {
		n := &notes[len(notes)-1]
		rest := votes[restClass]
		delete(votes, restClass)
		n.Rest = 2*rest >= n.Frames
		if !n.Rest {
			keys := slices.Sorted(maps.Keys(votes))
			best := keys[0]
			for _, k := range keys[1:] {
				if votes[k] > votes[best] {
					best = k
				}
			}
			n.MIDI = float64(best)
		}
		clear(votes)
	}

	for t, idx := range noteOf {
		if idx >= len(notes) {
			if len(notes) > 0 {
				flush()
			}
			notes = append(notes, Note{})
		}
		notes[idx].Frames++
		votes[classes[t]]++
	}
	if len(notes) > 0 {
		flush()
	}
	return notes
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}
