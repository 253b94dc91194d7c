package aggregate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go-friend-circle/internal/feeds"
)

type discovered struct {
	typ feeds.Type
	url string
}

// fakeFeeds 以内存表代替网络，记录调用次数与并发峰值。
type fakeFeeds struct {
	mu        sync.Mutex
	discover  map[string]discovered      // site -> 结果
	parsed    map[string]feeds.ParsedFeed // feed url -> 结果
	panicSite string
	delay     time.Duration

	discoverCalls map[string]int
	parseCalls    map[string]int

	inflight int32
	peak     int32
}

func newFakeFeeds() *fakeFeeds {
	return &fakeFeeds{
		discover:      map[string]discovered{},
		parsed:        map[string]feeds.ParsedFeed{},
		discoverCalls: map[string]int{},
		parseCalls:    map[string]int{},
	}
}

func (f *fakeFeeds) enter() func() {
	n := atomic.AddInt32(&f.inflight, 1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { atomic.AddInt32(&f.inflight, -1) }
}

func (f *fakeFeeds) Discover(_ context.Context, site string) (feeds.Type, string) {
	defer f.enter()()
	if site == f.panicSite {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverCalls[site]++
	if d, ok := f.discover[site]; ok {
		return d.typ, d.url
	}
	return feeds.TypeNone, site
}

func (f *fakeFeeds) Parse(_ context.Context, feedURL string, max int, _ string) feeds.ParsedFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parseCalls[feedURL]++
	pf := f.parsed[feedURL]
	if max > 0 && len(pf.Entries) > max {
		pf.Entries = pf.Entries[:max]
	}
	return pf
}

func entries(created ...string) feeds.ParsedFeed {
	var pf feeds.ParsedFeed
	for i, c := range created {
		pf.Entries = append(pf.Entries, feeds.Entry{
			Title:     "t" + c,
			Link:      "https://x.example/" + c + "/" + string(rune('a'+i)),
			Published: c,
		})
	}
	return pf
}
