package export

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
)

func parseDoc(t *testing.T, b []byte) fcpxmlDoc {
	t.Helper()
	var doc fcpxmlDoc
	if err := xml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("document is not valid xml: %v\n%s", err, b)
	}
	return doc
}

func TestBuildDocument_SortsByStartTime(t *testing.T) {
	out, err := BuildDocument(Timeline{
		Images: []ImageClip{
			{ID: "s0", Filename: "image-1.jpg", StartTime: 5, Duration: 2},
			{ID: "s1", Filename: "image-2.jpg", StartTime: 1, Duration: 2},
			{ID: "s2", Filename: "image-3.jpg", StartTime: 3, Duration: 2},
		},
	})
	if err != nil {
		t.Fatalf("BuildDocument() error = %v", err)
	}
	doc := parseDoc(t, out)

	clips := doc.Library.Event.Project.Sequence.Spine.Gap.Clips
	wantOffsets := []string{"25/25s", "75/25s", "125/25s"}
	wantNames := []string{"image-2.jpg", "image-3.jpg", "image-1.jpg"}
	if len(clips) != 3 {
		t.Fatalf("clips = %d, want 3", len(clips))
	}
	for i, c := range clips {
		if c.Offset != wantOffsets[i] || c.Name != wantNames[i] {
			t.Errorf("clip[%d] = %s @ %s, want %s @ %s", i, c.Name, c.Offset, wantNames[i], wantOffsets[i])
		}
		if c.Ref != doc.Resources.Assets[i].ID {
			t.Errorf("clip[%d] ref = %s, want %s", i, c.Ref, doc.Resources.Assets[i].ID)
		}
		if c.Start != "0s" || c.Duration != "50/25s" || c.Lane != 1 {
			t.Errorf("clip[%d] = %+v, want start 0s, duration 50/25s, lane 1", i, c)
		}
	}
}

func TestBuildDocument_StableForEqualStartTimes(t *testing.T) {
	out, err := BuildDocument(Timeline{
		Images: []ImageClip{
			{Filename: "image-1.jpg", StartTime: 2, Duration: 1},
			{Filename: "image-2.jpg", StartTime: 0, Duration: 1},
			{Filename: "image-3.jpg", StartTime: 2, Duration: 1},
		},
	})
	if err != nil {
		t.Fatalf("BuildDocument() error = %v", err)
	}
	assets := parseDoc(t, out).Resources.Assets
	got := []string{assets[0].Name, assets[1].Name, assets[2].Name}
	want := []string{"image-2.jpg", "image-1.jpg", "image-3.jpg"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("asset order = %v, want %v", got, want)
		}
	}
}

func TestBuildDocument_AssetNumbering(t *testing.T) {
	vol := 50.0
	out, err := BuildDocument(Timeline{
		Images: []ImageClip{
			{Filename: "image-1.png", StartTime: 0, Duration: 4},
			{Filename: "image-2.png", StartTime: 4, Duration: 4},
		},
		Audio: []AudioClip{
			{Name: "Music", Filename: "audio-2.mp3", StartTime: 1, Duration: 6, Volume: &vol},
			{Name: "VO", Filename: "audio-1.mp3", StartTime: 0, Duration: 8},
		},
		TotalDuration: 10,
	})
	if err != nil {
		t.Fatalf("BuildDocument() error = %v", err)
	}
	doc := parseDoc(t, out)

	if doc.Version != FCPXMLVersion {
		t.Errorf("version = %q", doc.Version)
	}
	f := doc.Resources.Format
	if f.ID != "r1" || f.Width != 1920 || f.Height != 1080 || f.FrameDuration != "1/25s" {
		t.Errorf("format = %+v", f)
	}

	assets := doc.Resources.Assets
	wantIDs := []string{"a1", "a2", "a3", "a4"}
	wantSrc := []string{"media/image-1.png", "media/image-2.png", "media/audio-1.mp3", "media/audio-2.mp3"}
	for i := range wantIDs {
		if assets[i].ID != wantIDs[i] || assets[i].Src != wantSrc[i] {
			t.Errorf("asset[%d] = %s %s, want %s %s", i, assets[i].ID, assets[i].Src, wantIDs[i], wantSrc[i])
		}
	}
	if assets[2].HasAudio != "1" || assets[2].HasVideo != "" || assets[2].Duration != "200/25s" {
		t.Errorf("audio asset = %+v", assets[2])
	}

	seq := doc.Library.Event.Project.Sequence
	if seq.Duration != "250/25s" || seq.AudioLayout != "stereo" || seq.AudioRate != "48k" {
		t.Errorf("sequence = %+v", seq)
	}

	clips := seq.Spine.Gap.Clips
	if len(clips) != 4 {
		t.Fatalf("clips = %d, want 4", len(clips))
	}
	music := clips[3]
	if music.Lane != -1 || music.Ref != "a4" || music.Offset != "25/25s" {
		t.Errorf("music clip = %+v", music)
	}
	if music.Volume == nil || music.Volume.Amount != "-6.0dB" {
		t.Errorf("music volume = %+v, want -6.0dB", music.Volume)
	}
	if clips[2].Volume != nil {
		t.Errorf("full-volume clip has adjustment %+v", clips[2].Volume)
	}
}

func TestBuildDocument_DurationFromClipsWhenTotalMissing(t *testing.T) {
	out, err := BuildDocument(Timeline{
		Images: []ImageClip{{Filename: "image-1.jpg", StartTime: 2, Duration: 3}},
		Audio:  []AudioClip{{Filename: "audio-1.mp3", StartTime: 0, Duration: 7.5}},
	})
	if err != nil {
		t.Fatalf("BuildDocument() error = %v", err)
	}
	if got := parseDoc(t, out).Library.Event.Project.Sequence.Duration; got != "187/25s" {
		t.Fatalf("sequence duration = %s, want 187/25s", got)
	}
	if !strings.HasPrefix(string(out), "<?xml") || !strings.Contains(string(out), "<!DOCTYPE fcpxml>") {
		t.Fatalf("missing prolog:\n%s", out)
	}
}

func TestVolumeAdjustment(t *testing.T) {
	full, loud := 100.0, 120.0
	if volumeAdjustment(nil) != nil || volumeAdjustment(&full) != nil || volumeAdjustment(&loud) != nil {
		t.Fatal("expected no adjustment for unset or full volume")
	}

	tests := []struct {
		volume float64
		want   string
	}{
		{0, "-96dB"},
		{-5, "-96dB"},
		{25, "-12.0dB"},
		{50, "-6.0dB"},
		{75.5, "-2.4dB"},
		{99.9, "-0.0dB"},
	}
	for _, tt := range tests {
		v := tt.volume
		if got := volumeAdjustment(&v).Amount; got != tt.want {
			t.Errorf("volumeAdjustment(%v) = %s, want %s", tt.volume, got, tt.want)
		}
	}
}

func TestAudioTrack_FractionalVolume(t *testing.T) {
	var track AudioTrack
	if err := json.Unmarshal([]byte(`{"id":"t1","audioUrl":"https://x/a.mp3","duration":2,"volume":75.5}`), &track); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if track.Volume == nil || *track.Volume != 75.5 {
		t.Fatalf("volume = %v, want 75.5", track.Volume)
	}
}
