package app

import "github.com/zeusync/forge/internal/core/ecs"

// State is one level of the application's pushdown automaton. Only the
// top state receives Update.
type State interface {
	OnStart(w *ecs.World)
	OnStop(w *ecs.World)
	// OnPause runs when another state is pushed above this one.
	OnPause(w *ecs.World)
	// OnResume runs when the state above was popped.
	OnResume(w *ecs.World)
	// Update runs once per frame before systems are dispatched.
	Update(w *ecs.World) Trans
}

// EmptyState implements State with no-ops. Embed it and override what
// you need.
type EmptyState struct{}

func (EmptyState) OnStart(*ecs.World)      {}
func (EmptyState) OnStop(*ecs.World)       {}
func (EmptyState) OnPause(*ecs.World)      {}
func (EmptyState) OnResume(*ecs.World)     {}
func (EmptyState) Update(*ecs.World) Trans { return None() }

type TransKind uint8

const (
	TransNone TransKind = iota
	TransPush
	TransPop
	TransSwitch
	TransQuit
)

func (k TransKind) String() string {
	switch k {
	case TransPush:
		return "push"
	case TransPop:
		return "pop"
	case TransSwitch:
		return "switch"
	case TransQuit:
		return "quit"
	default:
		return "none"
	}
}

// Trans is a state transition returned from Update.
type Trans struct {
	Kind  TransKind
	State State
}

func None() Trans { return Trans{Kind: TransNone} }

// Push pauses the current state and starts s above it.
func Push(s State) Trans { return Trans{Kind: TransPush, State: s} }

// Pop stops the current state and resumes the one below.
func Pop() Trans { return Trans{Kind: TransPop} }

// Switch stops the current state and starts s in its place.
func Switch(s State) Trans { return Trans{Kind: TransSwitch, State: s} }

// Quit stops every state and ends the application.
func Quit() Trans { return Trans{Kind: TransQuit} }

// StateMachine applies transitions to a stack of states.
type StateMachine struct {
	stack   []State
	running bool
}

func NewStateMachine(initial State) *StateMachine {
	return &StateMachine{stack: []State{initial}}
}

// Start runs OnStart of the initial state. Later calls do nothing.
func (m *StateMachine) Start(w *ecs.World) {
	if m.running || len(m.stack) == 0 {
		return
	}
	m.running = true
	m.stack[len(m.stack)-1].OnStart(w)
}

// IsRunning reports whether states remain and Quit was not requested.
func (m *StateMachine) IsRunning() bool { return m.running }

// Depth returns the number of stacked states.
func (m *StateMachine) Depth() int { return len(m.stack) }

// Update runs the top state and applies the transition it returns.
func (m *StateMachine) Update(w *ecs.World) Trans {
	if !m.running {
		return None()
	}
	t := m.stack[len(m.stack)-1].Update(w)
	m.Apply(w, t)
	return t
}

// Apply performs t against the stack.
func (m *StateMachine) Apply(w *ecs.World, t Trans) {
	if !m.running {
		return
	}
	switch t.Kind {
	case TransPush:
		m.stack[len(m.stack)-1].OnPause(w)
		m.stack = append(m.stack, t.State)
		t.State.OnStart(w)
	case TransPop:
		m.pop(w)
		if len(m.stack) == 0 {
			m.running = false
			return
		}
		m.stack[len(m.stack)-1].OnResume(w)
	case TransSwitch:
		m.pop(w)
		m.stack = append(m.stack, t.State)
		t.State.OnStart(w)
	case TransQuit:
		m.Stop(w)
	}
}

// Stop runs OnStop for every state, top first, and empties the stack.
func (m *StateMachine) Stop(w *ecs.World) {
	if !m.running {
		return
	}
	for len(m.stack) > 0 {
		m.pop(w)
	}
	m.running = false
}

func (m *StateMachine) pop(w *ecs.World) {
	top := m.stack[len(m.stack)-1]
	m.stack[len(m.stack)-1] = nil
	m.stack = m.stack[:len(m.stack)-1]
	top.OnStop(w)
}
