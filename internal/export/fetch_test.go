package export

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeMedia serves bytes from a map; unknown URLs fail.
type fakeMedia struct {
	mu       sync.Mutex
	data     map[string][]byte
	calls    map[string]int
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeMedia(data map[string][]byte) *fakeMedia {
	return &fakeMedia{data: data, calls: make(map[string]int)}
}

func (f *fakeMedia) Fetch(ctx context.Context, url string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	b, ok := f.data[url]
	if !ok {
		return nil, fmt.Errorf("media fetch failed: HTTP 404")
	}
	return b, nil
}

func TestFetchAll_AllSettled(t *testing.T) {
	client := newFakeMedia(map[string][]byte{
		"https://x/1.jpg": []byte("one"),
		"https://x/3.jpg": []byte("three"),
	})
	f := NewFetcher(client, 0, nil)

	assets := Resolve([]string{"https://x/1.jpg", "https://x/2.jpg", "https://x/3.jpg"}, KindImage).Assets()
	res := f.FetchAll(context.Background(), assets)

	if len(res.Succeeded) != 2 {
		t.Fatalf("succeeded = %d, want 2", len(res.Succeeded))
	}
	if res.Succeeded[0].Filename != "image-1.jpg" || res.Succeeded[1].Filename != "image-3.jpg" {
		t.Fatalf("succeeded not in input order: %+v", res.Succeeded)
	}
	if string(res.Succeeded[1].Data) != "three" {
		t.Fatalf("data = %q, want three", res.Succeeded[1].Data)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "https://x/2.jpg" {
		t.Fatalf("failed = %v, want [https://x/2.jpg]", res.Failed)
	}
	for _, a := range assets {
		if client.calls[a.URL] != 1 {
			t.Errorf("%s fetched %d times, want 1", a.URL, client.calls[a.URL])
		}
	}
}

func TestFetchAll_Limit(t *testing.T) {
	data := make(map[string][]byte)
	var urls []string
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("https://x/%d.mp3", i)
		data[u] = []byte{byte(i)}
		urls = append(urls, u)
	}
	client := newFakeMedia(data)
	client.delay = 10 * time.Millisecond

	res := NewFetcher(client, 2, nil).FetchAll(context.Background(), Resolve(urls, KindAudio).Assets())
	if len(res.Succeeded) != 8 {
		t.Fatalf("succeeded = %d, want 8", len(res.Succeeded))
	}
	if got := client.maxSeen.Load(); got > 2 {
		t.Fatalf("max in-flight = %d, want <= 2", got)
	}
}

func TestFetchAll_Empty(t *testing.T) {
	res := NewFetcher(newFakeMedia(nil), 0, nil).FetchAll(context.Background(), nil)
	if len(res.Succeeded) != 0 || len(res.Failed) != 0 {
		t.Fatalf("FetchAll(nil) = %+v, want empty", res)
	}
}
