package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"sort"

	"github.com/concepto/concepto-av/internal/timecode"
)

const (
	DocumentName  = "timeline.fcpxml"
	FCPXMLVersion = "1.8"

	formatID     = "r1"
	formatName   = "FFVideoFormat1080p25"
	formatWidth  = 1920
	formatHeight = 1080
	audioRate    = 48000

	videoLane = 1
	audioLane = -1
)

// ImageClip is a slide that made it into the export, with its archive filename.
type ImageClip struct {
	ID        string
	Filename  string
	StartTime float64
	Duration  float64
}

type AudioClip struct {
	ID        string
	Name      string
	Filename  string
	StartTime float64
	Duration  float64
	Volume    *float64
}

// Timeline is the builder's input. Clips may arrive in any order.
type Timeline struct {
	Title         string
	Images        []ImageClip
	Audio         []AudioClip
	TotalDuration float64
}

type fcpxmlDoc struct {
	XMLName   xml.Name  `xml:"fcpxml"`
	Version   string    `xml:"version,attr"`
	Resources resources `xml:"resources"`
	Library   library   `xml:"library"`
}

type resources struct {
	Format videoFormat `xml:"format"`
	Assets []asset     `xml:"asset"`
}

type videoFormat struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	FrameDuration string `xml:"frameDuration,attr"`
	Width         int    `xml:"width,attr"`
	Height        int    `xml:"height,attr"`
}

type asset struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	Src           string `xml:"src,attr"`
	Start         string `xml:"start,attr"`
	Duration      string `xml:"duration,attr"`
	HasVideo      string `xml:"hasVideo,attr,omitempty"`
	HasAudio      string `xml:"hasAudio,attr,omitempty"`
	Format        string `xml:"format,attr,omitempty"`
	AudioSources  string `xml:"audioSources,attr,omitempty"`
	AudioChannels string `xml:"audioChannels,attr,omitempty"`
	AudioRate     string `xml:"audioRate,attr,omitempty"`
}

type library struct {
	Event event `xml:"event"`
}

type event struct {
	Name    string  `xml:"name,attr"`
	Project project `xml:"project"`
}

type project struct {
	Name     string   `xml:"name,attr"`
	Sequence sequence `xml:"sequence"`
}

type sequence struct {
	Format      string `xml:"format,attr"`
	Duration    string `xml:"duration,attr"`
	TCStart     string `xml:"tcStart,attr"`
	TCFormat    string `xml:"tcFormat,attr"`
	AudioLayout string `xml:"audioLayout,attr"`
	AudioRate   string `xml:"audioRate,attr"`
	Spine       spine  `xml:"spine"`
}

type spine struct {
	Gap gap `xml:"gap"`
}

type gap struct {
	Name     string      `xml:"name,attr"`
	Offset   string      `xml:"offset,attr"`
	Start    string      `xml:"start,attr"`
	Duration string      `xml:"duration,attr"`
	Clips    []assetClip `xml:"asset-clip"`
}

type assetClip struct {
	Ref      string        `xml:"ref,attr"`
	Lane     int           `xml:"lane,attr"`
	Offset   string        `xml:"offset,attr"`
	Name     string        `xml:"name,attr"`
	Start    string        `xml:"start,attr"`
	Duration string        `xml:"duration,attr"`
	Volume   *adjustVolume `xml:"adjust-volume,omitempty"`
}

type adjustVolume struct {
	Amount string `xml:"amount,attr"`
}

// BuildDocument renders the timeline as an FCPXML document at timecode.FPS.
// Clips are stably sorted by start time; image assets are numbered first
// (a1..aN) and audio assets continue the sequence (aN+1..aN+M).
func BuildDocument(tl Timeline) ([]byte, error) {
	images := append([]ImageClip(nil), tl.Images...)
	sort.SliceStable(images, func(i, j int) bool { return images[i].StartTime < images[j].StartTime })
	audio := append([]AudioClip(nil), tl.Audio...)
	sort.SliceStable(audio, func(i, j int) bool { return audio[i].StartTime < audio[j].StartTime })

	fps := timecode.FPS
	tok := func(seconds float64) string { return timecode.DurationToken(seconds, fps) }

	var assets []asset
	var clips []assetClip
	end := 0.0

	for i, c := range images {
		id := fmt.Sprintf("a%d", i+1)
		assets = append(assets, asset{
			ID:       id,
			Name:     c.Filename,
			Src:      "media/" + c.Filename,
			Start:    "0s",
			Duration: tok(c.Duration),
			HasVideo: "1",
			Format:   formatID,
		})
		clips = append(clips, assetClip{
			Ref:      id,
			Lane:     videoLane,
			Offset:   tok(c.StartTime),
			Name:     c.Filename,
			Start:    "0s",
			Duration: tok(c.Duration),
		})
		end = math.Max(end, c.StartTime+c.Duration)
	}

	for i, c := range audio {
		id := fmt.Sprintf("a%d", len(images)+i+1)
		name := c.Name
		if name == "" {
			name = c.Filename
		}
		assets = append(assets, asset{
			ID:            id,
			Name:          name,
			Src:           "media/" + c.Filename,
			Start:         "0s",
			Duration:      tok(c.Duration),
			HasAudio:      "1",
			AudioSources:  "1",
			AudioChannels: "2",
			AudioRate:     fmt.Sprint(audioRate),
		})
		clips = append(clips, assetClip{
			Ref:      id,
			Lane:     audioLane,
			Offset:   tok(c.StartTime),
			Name:     name,
			Start:    "0s",
			Duration: tok(c.Duration),
			Volume:   volumeAdjustment(c.Volume),
		})
		end = math.Max(end, c.StartTime+c.Duration)
	}

	total := tl.TotalDuration
	if total <= 0 {
		total = end
	}

	title := tl.Title
	if title == "" {
		title = "AV Editing Export"
	}

	doc := fcpxmlDoc{
		Version: FCPXMLVersion,
		Resources: resources{
			Format: videoFormat{
				ID:            formatID,
				Name:          formatName,
				FrameDuration: fmt.Sprintf("1/%ds", fps),
				Width:         formatWidth,
				Height:        formatHeight,
			},
			Assets: assets,
		},
		Library: library{Event: event{
			Name: title,
			Project: project{
				Name: title,
				Sequence: sequence{
					Format:      formatID,
					Duration:    tok(total),
					TCStart:     "0s",
					TCFormat:    "NDF",
					AudioLayout: "stereo",
					AudioRate:   "48k",
					Spine: spine{Gap: gap{
						Name:     "Timeline",
						Offset:   "0s",
						Start:    "0s",
						Duration: tok(total),
						Clips:    clips,
					}},
				},
			},
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<!DOCTYPE fcpxml>\n")
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode fcpxml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// volumeAdjustment converts a 0-100 volume into a gain in dB. Full volume
// and unset volume need no adjustment. Fractional volumes are allowed.
func volumeAdjustment(volume *float64) *adjustVolume {
	if volume == nil || *volume >= 100 {
		return nil
	}
	if *volume <= 0 {
		return &adjustVolume{Amount: "-96dB"}
	}
	db := 20 * math.Log10(*volume/100)
	return &adjustVolume{Amount: fmt.Sprintf("%.1fdB", db)}
}
