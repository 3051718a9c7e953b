// Package timecode converts seconds into frame counts, rational duration
// tokens and SMPTE-style timecodes at a fixed frame rate.
package timecode

import (
	"fmt"
	"math"
)

// FPS is the frame rate of every export. It matches the single video format
// declared in the interchange document, so it is never read from input.
const FPS = 25

// FrameCount returns floor(seconds * fps). Negative and non-finite input
// yields zero frames.
func FrameCount(seconds float64, fps int) int {
	if fps <= 0 {
		fps = FPS
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds * float64(fps)))
}

// DurationToken formats seconds as "<frames>/<fps>s", the rational time value
// used by the interchange document.
func DurationToken(seconds float64, fps int) string {
	if fps <= 0 {
		fps = FPS
	}
	return fmt.Sprintf("%d/%ds", FrameCount(seconds, fps), fps)
}

// Timecode formats seconds as HH:MM:SS:FF.
func Timecode(seconds float64, fps int) string {
	if fps <= 0 {
		fps = FPS
	}
	totalFrames := FrameCount(seconds, fps)
	hours := totalFrames / (fps * 3600)
	minutes := (totalFrames % (fps * 3600)) / (fps * 60)
	secs := (totalFrames % (fps * 60)) / fps
	frames := totalFrames % fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, secs, frames)
}
