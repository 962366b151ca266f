package timesync

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

var _ Source = (*NTPSource)(nil)

const defaultNTPTimeout = 5 * time.Second

type ntpQueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

// NTPSource reads the transmit time of an NTP server. Its instant goes
// through the same round-trip compensation as the HTTP sources.
type NTPSource struct {
	server string
	query  ntpQueryFunc
}

// NewNTPSource creates a source for the given NTP server address.
func NewNTPSource(server string) *NTPSource {
	return &NTPSource{server: server, query: ntp.QueryWithOptions}
}

func (s *NTPSource) Name() string { return "ntp:" + s.server }

func (s *NTPSource) Fetch(ctx context.Context) (time.Time, error) {
	opts := ntp.QueryOptions{Timeout: defaultNTPTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = time.Until(deadline)
	}
	if opts.Timeout <= 0 {
		return time.Time{}, context.DeadlineExceeded
	}

	type answer struct {
		resp *ntp.Response
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		resp, err := s.query(s.server, opts)
		ch <- answer{resp, err}
	}()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return time.Time{}, a.err
		}
		if err := a.resp.Validate(); err != nil {
			return time.Time{}, fmt.Errorf("ntp %s: %w", s.server, err)
		}
		return a.resp.Time, nil
	}
}
