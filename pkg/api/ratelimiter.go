package api

import (
	"context"
	"time"
)

// RequestKind separates cheap state calls from endpoints that do real
// work per request: parsing uploaded files or building a GPX download.
type RequestKind int

const (
	// RequestGeneral marks inexpensive endpoints that only need the
	// per-IP queue so one client cannot flood the server concurrently.
	RequestGeneral RequestKind = iota
	// RequestHeavy marks the upload and export endpoints. Each heavy
	// call is followed by a cooldown before the same IP may run another.
	RequestHeavy
)

// RateLimiter sequences requests per client IP without mutexes: every IP
// gets its own goroutine, and all coordination happens over channels.
type RateLimiter struct {
	heavyCooldown time.Duration
	requests      chan keyedRequest
	now           func() time.Time
}

type keyedRequest struct {
	ip  string
	req ipRequest
}

type ipRequest struct {
	ctx      context.Context
	kind     RequestKind
	arrived  time.Time
	response chan acquireResponse
}

type acquireResponse struct {
	release      chan struct{}
	wait         bool
	waitDuration time.Duration
	err          error
}

// Permit is an acquired slot for one request. Release it when the
// handler finishes so the next queued request from the same IP proceeds.
type Permit struct {
	release      chan struct{}
	WaitNotice   bool
	WaitDuration time.Duration
}

// Release signals the IP worker that the request is done. The channel is
// nilled so double releases are harmless.
func (p *Permit) Release() {
	if p == nil || p.release == nil {
		return
	}
	close(p.release)
	p.release = nil
}

// NewRateLimiter builds a limiter with the given cooldown after heavy
// calls and starts its coordination goroutine.
func NewRateLimiter(heavyCooldown time.Duration) *RateLimiter {
	limiter := &RateLimiter{
		heavyCooldown: heavyCooldown,
		requests:      make(chan keyedRequest),
		now:           time.Now,
	}

	go limiter.loop()

	return limiter
}

// Acquire reserves a slot for the given IP and kind. The returned Permit
// must be released. A nil limiter grants everything immediately, so the
// handler works unchanged when limiting is disabled.
func (l *RateLimiter) Acquire(ctx context.Context, ip string, kind RequestKind) (*Permit, error) {
	if l == nil {
		return nil, nil
	}

	respCh := make(chan acquireResponse, 1)
	req := ipRequest{
		ctx:      ctx,
		kind:     kind,
		arrived:  l.now(),
		response: respCh,
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case l.requests <- keyedRequest{ip: ip, req: req}:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-respCh:
		if resp.err != nil {
			return nil, resp.err
		}
		return &Permit{
			release:      resp.release,
			WaitNotice:   resp.wait,
			WaitDuration: resp.waitDuration,
		}, nil
	}
}

func (l *RateLimiter) loop() {
	workers := make(map[string]chan ipRequest)

	for keyed := range l.requests {
		ch, ok := workers[keyed.ip]
		if !ok {
			ch = make(chan ipRequest)
			workers[keyed.ip] = ch
			go l.runIPWorker(ch)
		}
		ch <- keyed.req
	}
}

// runIPWorker buffers one IP's requests in an in-memory queue, so the
// dispatch loop hands a request over and moves on immediately. One
// client sitting in a long upload never stalls dispatch for other IPs.
func (l *RateLimiter) runIPWorker(inbox <-chan ipRequest) {
	work := make(chan ipRequest)
	go l.processIPRequests(work)

	var queue []ipRequest
	for {
		var dispatch chan ipRequest
		var next ipRequest
		if len(queue) > 0 {
			dispatch = work
			next = queue[0]
		}
		select {
		case req := <-inbox:
			queue = append(queue, req)
		case dispatch <- next:
			queue = queue[1:]
		}
	}
}

// processIPRequests serializes one IP's requests and enforces the
// cooldown between consecutive heavy calls.
func (l *RateLimiter) processIPRequests(requests <-chan ipRequest) {
	var lastHeavyFinish time.Time

	for req := range requests {
		select {
		case <-req.ctx.Done():
			req.response <- acquireResponse{err: req.ctx.Err()}
			continue
		default:
		}

		now := l.now()
		queueWait := now.Sub(req.arrived)
		if queueWait < 0 {
			queueWait = 0
		}
		totalWait := queueWait

		if req.kind == RequestHeavy && !lastHeavyFinish.IsZero() {
			readyAt := lastHeavyFinish.Add(l.heavyCooldown)
			now = l.now()
			if now.Before(readyAt) {
				cooldownWait := readyAt.Sub(now)
				timer := time.NewTimer(cooldownWait)
				select {
				case <-req.ctx.Done():
					if !timer.Stop() {
						<-timer.C
					}
					req.response <- acquireResponse{err: req.ctx.Err()}
					continue
				case <-timer.C:
					totalWait += cooldownWait
				}
			}
		}

		release := make(chan struct{})
		resp := acquireResponse{
			release:      release,
			wait:         totalWait > 0,
			waitDuration: totalWait,
		}

		select {
		case <-req.ctx.Done():
			req.response <- acquireResponse{err: req.ctx.Err()}
			continue
		case req.response <- resp:
		}

		select {
		case <-release:
		case <-req.ctx.Done():
			<-release
		}

		if req.kind == RequestHeavy {
			lastHeavyFinish = l.now()
		}
	}
}
