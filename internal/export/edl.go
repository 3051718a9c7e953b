package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/concepto/concepto-av/internal/timecode"
)

// EDLName is the CMX3600 sidecar written next to the FCPXML document for
// editors that cannot import FCPXML.
const EDLName = "timeline.edl"

// GenerateEDL lists the timeline's clips as CMX3600 events at timecode.FPS.
// Video events come first, then audio, each sorted by start time. Record
// in/out are absolute timeline positions; source in is always zero.
func GenerateEDL(tl Timeline) string {
	title := tl.Title
	if title == "" {
		title = "AV Editing Export"
	}

	lines := []string{
		fmt.Sprintf("TITLE: %s", SanitizeName(title, 70)),
		"FCM: NON-DROP FRAME",
		"",
	}

	images := append([]ImageClip(nil), tl.Images...)
	sort.SliceStable(images, func(i, j int) bool { return images[i].StartTime < images[j].StartTime })
	audio := append([]AudioClip(nil), tl.Audio...)
	sort.SliceStable(audio, func(i, j int) bool { return audio[i].StartTime < audio[j].StartTime })

	n := 0
	event := func(track, name, file string, start, duration float64) {
		n++
		tc := func(s float64) string { return timecode.Timecode(s, timecode.FPS) }
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", n, "AX", track,
				tc(0), tc(duration), tc(start), tc(start+duration)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", name),
			fmt.Sprintf("* MEDIA PATH:  media/%s", file),
		)
	}

	for _, c := range images {
		event("V", c.Filename, c.Filename, c.StartTime, c.Duration)
	}
	for _, c := range audio {
		name := c.Name
		if name == "" {
			name = c.Filename
		}
		event("A", SanitizeName(name, 70), c.Filename, c.StartTime, c.Duration)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
