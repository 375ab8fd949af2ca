package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ratePolicy is one route's request budget. The traffic profile here is
// unusual: the hot path is a single large multipart upload per participant
// session, not a stream of small calls, so upload gets a tight budget while
// dashboard reads get a generous one.
type ratePolicy struct {
	Limit  int
	Window time.Duration
}

var (
	policyRegister = ratePolicy{Limit: 3, Window: time.Minute}
	policyLogin    = ratePolicy{Limit: 10, Window: time.Minute}
	policyUpload   = ratePolicy{Limit: 30, Window: time.Minute}
	policyRead     = ratePolicy{Limit: 120, Window: time.Minute}
	policyMonitor  = ratePolicy{Limit: 15, Window: 30 * time.Second}
)

type RateLimiter interface {
	Allow(key string, policy ratePolicy) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

// memoryRateLimiter is the single-replica default: fixed windows tracked
// per key, swept periodically so abandoned keys do not accumulate.
type memoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]rateWindow
	stopCh  chan struct{}
	once    sync.Once
}

type rateWindow struct {
	count   int
	started time.Time
	span    time.Duration
}

func (w rateWindow) end() time.Time { return w.started.Add(w.span) }

const memorySweepEvery = 10 * time.Minute

func NewMemoryRateLimiter() RateLimiter {
	rl := &memoryRateLimiter{
		windows: make(map[string]rateWindow),
		stopCh:  make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *memoryRateLimiter) Allow(key string, policy ratePolicy) rateDecision {
	policy = policy.withDefaults()
	if policy.Limit <= 0 {
		return rateDecision{allowed: true}
	}
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	win, ok := rl.windows[key]
	if !ok || now.After(win.end()) {
		win = rateWindow{count: 1, started: now, span: policy.Window}
		rl.windows[key] = win
		return rateDecision{allowed: true, count: 1, windowEnd: win.end()}
	}
	if win.count >= policy.Limit {
		return rateDecision{allowed: false, count: win.count, windowEnd: win.end()}
	}
	win.count++
	rl.windows[key] = win
	return rateDecision{allowed: true, count: win.count, windowEnd: win.end()}
}

func (p ratePolicy) withDefaults() ratePolicy {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

func (rl *memoryRateLimiter) sweepLoop() {
	ticker := time.NewTicker(memorySweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *memoryRateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, win := range rl.windows {
		if now.After(win.end()) {
			delete(rl.windows, key)
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
}

func (r *Router) withRateLimit(route string, policy ratePolicy, keyFn func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if policy.Limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		key := keyFn(req)
		if key == "" {
			key = rateLimitKeyIP(req)
		}
		decision := r.limiter.Allow(key, policy)
		r.applyRateHeaders(w, policy.Limit, decision)
		if !decision.allowed {
			label := route
			if label == "" {
				label = req.URL.Path
			}
			r.recordRateLimitHit(label, rateMetricKey(key))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

func (r *Router) handlerAuthRate(route string, policy ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(r.withRateLimit(route, policy, r.rateLimitKeyAdmin, next))
}

func (r *Router) rateLimitKeyAdmin(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.AdminID != "" {
		return "admin:" + info.AdminID
	}
	return ""
}

func rateLimitKeyIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

// rateMetricKey strips the per-identity suffix so metric labels stay low
// cardinality.
func rateMetricKey(key string) string {
	if key == "" {
		return "unknown"
	}
	if idx := strings.IndexRune(key, ':'); idx > 0 {
		return key[:idx]
	}
	return key
}
