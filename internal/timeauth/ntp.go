package timeauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultNTPServer  = "pool.ntp.org"
	DefaultNTPTimeout = 5 * time.Second
)

// NTPClient is the SyncClient backed by an SNTP query.
type NTPClient struct {
	server  string
	timeout time.Duration
	logger  *slog.Logger
	query   func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

	mu      sync.Mutex
	epoch   uint32
	offset  time.Duration
	stratum uint8
}

func NewNTPClient(server string, timeout time.Duration, logger *slog.Logger) *NTPClient {
	if server == "" {
		server = DefaultNTPServer
	}
	if timeout <= 0 {
		timeout = DefaultNTPTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NTPClient{
		server:  server,
		timeout: timeout,
		logger:  logger.With("component", "ntp"),
		query:   ntp.QueryWithOptions,
	}
}

// Update queries the server once. The query timeout is the smaller of the
// configured timeout and the context deadline.
func (c *NTPClient) Update(ctx context.Context) bool {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := ctx.Err(); err != nil || timeout <= 0 {
		c.logger.Warn("ntp query skipped", "error", ctx.Err())
		return false
	}

	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		c.logger.Warn("failed to query ntp server", "server", c.server, "error", err)
		return false
	}
	if err := resp.Validate(); err != nil {
		c.logger.Warn("invalid ntp response", "server", c.server, "error", err)
		return false
	}

	now := time.Now().Add(resp.ClockOffset)
	c.mu.Lock()
	c.epoch = uint32(now.Unix())
	c.offset = resp.ClockOffset
	c.stratum = resp.Stratum
	c.mu.Unlock()

	c.logger.Debug("ntp response", "server", c.server, "offset", resp.ClockOffset.String(), "stratum", resp.Stratum)
	return true
}

// EpochTime is the epoch from the last successful Update, 0 before one.
func (c *NTPClient) EpochTime() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Offset is the host clock offset measured by the last successful Update.
func (c *NTPClient) Offset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

func (c *NTPClient) Stratum() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stratum
}

// FakeSyncClient is a scripted SyncClient. Each Update consumes the next
// entry of Epochs (or repeats Epoch once Epochs is empty); Fail makes
// Update return false.
type FakeSyncClient struct {
	mu     sync.Mutex
	Epoch  uint32
	Epochs []uint32
	Fail   bool
	Calls  int
	// Hook runs inside Update, for tests that need to act mid-exchange.
	Hook func()
}

func (f *FakeSyncClient) Update(context.Context) bool {
	f.mu.Lock()
	f.Calls++
	hook := f.Hook
	if len(f.Epochs) > 0 {
		f.Epoch, f.Epochs = f.Epochs[0], f.Epochs[1:]
	}
	fail := f.Fail
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return !fail
}

func (f *FakeSyncClient) EpochTime() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Epoch
}

func (f *FakeSyncClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
