package publish

import "sync"

// Fake records published events for test assertions.
type Fake struct {
	mu sync.Mutex

	Sessions        []SessionEvent
	SessionPayloads [][]byte
	Dailies         []DailySummary
	DailyPayloads   [][]byte

	// PublishError, if set, is returned by every publish.
	PublishError error
	Closed       bool
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) PublishSession(ev SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatSession(ev)
	if err != nil {
		return err
	}
	f.Sessions = append(f.Sessions, ev)
	f.SessionPayloads = append(f.SessionPayloads, payload)
	return nil
}

func (f *Fake) PublishDaily(s DailySummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatDaily(s)
	if err != nil {
		return err
	}
	f.Dailies = append(f.Dailies, s)
	f.DailyPayloads = append(f.DailyPayloads, payload)
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// SessionCount is safe to call while the device is running.
func (f *Fake) SessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sessions)
}

func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sessions, f.SessionPayloads = nil, nil
	f.Dailies, f.DailyPayloads = nil, nil
	f.Closed = false
}
