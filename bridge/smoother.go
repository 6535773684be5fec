package bridge

import (
	"sync"
	"time"

	"github.com/NERVsystems/takbridge/cot"
)

// smootherState is one UID's alpha-beta filter state: estimated
// position and velocity (degrees/sec for lat/lon, a simplification
// appropriate at the update rates this bridge handles).
type smootherState struct {
	lat, lon   float64
	vLat, vLon float64
	lastUpdate time.Time
}

// Smoother applies an alpha-beta filter to each UID's reported
// position independently, per spec.md §4.7.5. State is reset after
// cacheTTL of inactivity for a given UID so a long-silent entity
// doesn't smooth against a stale velocity estimate when it reappears.
type Smoother struct {
	mu       sync.Mutex
	alpha    float64
	beta     float64
	cacheTTL time.Duration
	state    map[cot.Uid]*smootherState
}

// NewSmoother builds a Smoother. If alpha or beta is <= 0, Apply is a
// no-op passthrough (Config.Validate rejects this combination when
// Smoothing is SmoothingAlphaBeta, but a SmoothingNone config also
// constructs a Smoother with alpha=beta=0 for pipeline uniformity).
func NewSmoother(alpha, beta float64, cacheTTL time.Duration) *Smoother {
	return &Smoother{
		alpha:    alpha,
		beta:     beta,
		cacheTTL: cacheTTL,
		state:    make(map[cot.Uid]*smootherState),
	}
}

// Apply smooths (lat, lon) for uid observed at now, returning the
// filtered position. The first observation for a UID (or the first
// after cacheTTL of inactivity) seeds the filter with the raw reading
// and zero velocity.
func (s *Smoother) Apply(uid cot.Uid, lat, lon float64, now time.Time) (float64, float64) {
	if s.alpha <= 0 || s.beta <= 0 {
		return lat, lon
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[uid]
	if !ok || now.Sub(st.lastUpdate) > s.cacheTTL {
		st = &smootherState{lat: lat, lon: lon, lastUpdate: now}
		s.state[uid] = st
		return lat, lon
	}

	dt := now.Sub(st.lastUpdate).Seconds()
	if dt <= 0 {
		dt = 1
	}

	predLat := st.lat + st.vLat*dt
	predLon := st.lon + st.vLon*dt

	residualLat := lat - predLat
	residualLon := lon - predLon

	st.lat = predLat + s.alpha*residualLat
	st.lon = predLon + s.alpha*residualLon
	st.vLat += s.beta * residualLat / dt
	st.vLon += s.beta * residualLon / dt
	st.lastUpdate = now

	return st.lat, st.lon
}
