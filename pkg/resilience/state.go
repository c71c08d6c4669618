package resilience

import (
	"fmt"
	"maps"
	"sync"
	"time"
)

// State - состояние Circuit Breaker
type State int

const (
	// StateClosed - нормальная работа, запросы проходят
	StateClosed State = iota

	// StateHalfOpen - пробные запросы после паузы
	StateHalfOpen

	// StateOpen - запросы отклоняются
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// stateManager - состояние и счетчики под одним мьютексом
type stateManager struct {
	mu              sync.Mutex
	state           State
	generation      uint64 // результаты запросов прошлых поколений игнорируются
	counts          Counts
	expiry          time.Time
	config          Config
	runningCalls    uint32
	maxRunningCalls uint32
	lastStateChange time.Time
	stateChanges    map[State]int
	rejected        uint64
}

func newStateManager(config Config) *stateManager {
	return &stateManager{
		state:           StateClosed,
		config:          config,
		lastStateChange: time.Now(),
		stateChanges:    make(map[State]int),
	}
}

func (sm *stateManager) getState() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// transition меняет состояние; вызывается под lock
func (sm *stateManager) transition(to State) {
	if sm.state == to {
		return
	}

	from := sm.state
	sm.state = to
	sm.generation++
	sm.counts = Counts{}
	sm.lastStateChange = time.Now()
	sm.stateChanges[to]++

	if to == StateOpen {
		sm.expiry = time.Now().Add(sm.config.Timeout)
	}

	if sm.config.OnStateChange != nil {
		go sm.config.OnStateChange(sm.config.Name, from, to)
	}
}

// beforeRequest - допуск запроса; возвращает поколение для afterRequest
func (sm *stateManager) beforeRequest() (uint64, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state == StateOpen && time.Now().After(sm.expiry) {
		sm.transition(StateHalfOpen)
	}

	if sm.state == StateOpen {
		sm.rejected++
		return sm.generation, ErrCircuitOpen
	}

	if sm.config.MaxConcurrentCalls > 0 && sm.runningCalls >= sm.config.MaxConcurrentCalls {
		sm.rejected++
		return sm.generation, ErrTooManyCalls
	}

	sm.runningCalls++
	sm.maxRunningCalls = max(sm.maxRunningCalls, sm.runningCalls)
	return sm.generation, nil
}

func (sm *stateManager) afterRequest(generation uint64, success bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.runningCalls > 0 {
		sm.runningCalls--
	}
	if generation != sm.generation {
		return
	}

	sm.counts.Requests++
	if success {
		sm.counts.TotalSuccesses++
		sm.counts.ConsecutiveSuccesses++
		sm.counts.ConsecutiveFailures = 0

		if sm.state == StateHalfOpen && sm.counts.ConsecutiveSuccesses >= sm.config.SuccessThreshold {
			sm.transition(StateClosed)
		}
		return
	}

	sm.counts.TotalFailures++
	sm.counts.ConsecutiveFailures++
	sm.counts.ConsecutiveSuccesses = 0

	switch sm.state {
	case StateClosed:
		if sm.counts.ConsecutiveFailures >= sm.config.MaxFailures {
			sm.transition(StateOpen)
		}
	case StateHalfOpen:
		sm.transition(StateOpen)
	}
}

func (sm *stateManager) getCounts() Counts {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.counts
}

func (sm *stateManager) getStats() Stats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var untilHalfOpen time.Duration
	if sm.state == StateOpen {
		untilHalfOpen = max(time.Until(sm.expiry), 0)
	}

	return Stats{
		State:             sm.state,
		Generation:        sm.generation,
		Counts:            sm.counts,
		RunningCalls:      sm.runningCalls,
		MaxRunningCalls:   sm.maxRunningCalls,
		Rejected:          sm.rejected,
		LastStateChange:   sm.lastStateChange,
		StateChanges:      maps.Clone(sm.stateChanges),
		TimeUntilHalfOpen: untilHalfOpen,
	}
}

func (sm *stateManager) reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.transition(StateClosed)
	sm.generation++
	sm.counts = Counts{}
	sm.expiry = time.Time{}
}

// Stats - статистика Circuit Breaker
type Stats struct {
	State             State
	Generation        uint64
	Counts            Counts
	RunningCalls      uint32
	MaxRunningCalls   uint32
	Rejected          uint64
	LastStateChange   time.Time
	StateChanges      map[State]int
	TimeUntilHalfOpen time.Duration
}
