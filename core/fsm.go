package core

import "strconv"

// StateID identifies a state within one TaskFSM. The zero value is invalid
// (used for "no current state" before the entry transition).
type StateID struct {
	idx int32
}

func makeStateID(index int) StateID {
	return StateID{idx: int32(index) + 1}
}

// IsValid returns whether the id refers to a state.
func (s StateID) IsValid() bool {
	return s.idx != 0
}

// Index returns the zero-based index of the state, or -1 when invalid.
func (s StateID) Index() int {
	return int(s.idx) - 1
}

// String returns a printable form of the id.
func (s StateID) String() string {
	if !s.IsValid() {
		return "<invalid>"
	}
	return "state#" + strconv.Itoa(s.Index())
}

// TransitionDebugData describes one state transition, for debug callbacks.
type TransitionDebugData struct {
	OldStateID   StateID
	OldStateName string
	NewStateID   StateID
	NewStateName string
}

// TransitionFn is called once per state transition, before the new state's
// task is constructed.
type TransitionFn func()

// DebugTransitionFn receives debug data for every state transition.
type DebugTransitionFn func(TransitionDebugData)

const entryStateName = "<ENTRY>"

// =============================================================================
// Links
// =============================================================================

type linkKind int

const (
	linkNormal linkKind = iota
	linkOnComplete
)

// LinkHandle is one edge of the FSM graph: a reference to the target state,
// a guarding predicate, and whether the link is Normal or OnComplete.
// Links are created from the TARGET state's handle and then assembled into
// the source state's outgoing list with StateLinks (or EntryLinks).
type LinkHandle struct {
	targetID    StateID
	targetName  string
	isExit      bool
	kind        linkKind
	conditional bool

	// eval runs the predicate; on a match it returns the factory thunk that
	// builds the target state's task (nil for exit states). Construction is
	// deferred so transition callbacks can run first.
	eval func() (func() *Task[Void], bool)
}

// pendingTransition is a matched link, ready to materialize.
type pendingTransition struct {
	id     StateID
	name   string
	isExit bool
	make   func() *Task[Void]
}

// StateRef is any state handle (input-taking, void, or exit).
type StateRef interface {
	stateID() StateID
}

// =============================================================================
// State handles
// =============================================================================

// StateHandle is the handle to a normal state whose task factory takes one
// typed input. Link predicates either produce the input value themselves
// (LinkWhen) or gate a fixed payload (Link / LinkIf).
type StateHandle[In any] struct {
	id      StateID
	name    string
	factory func(In) *Task[Void]
}

func (s *StateHandle[In]) stateID() StateID { return s.id }

// ID returns the id of this state.
func (s *StateHandle[In]) ID() StateID { return s.id }

// Link creates an unconditional Normal link into this state, carrying the
// given payload.
func (s *StateHandle[In]) Link(payload In) LinkHandle {
	return s.makeLink(func() (In, bool) { return payload, true }, linkNormal, false)
}

// LinkIf creates a Normal link that is followed when pred returns true,
// carrying the given payload.
func (s *StateHandle[In]) LinkIf(pred func() bool, payload In) LinkHandle {
	return s.makeLink(func() (In, bool) {
		var zero In
		if !pred() {
			return zero, false
		}
		return payload, true
	}, linkNormal, true)
}

// LinkWhen creates a Normal link that is followed when pred yields a value;
// the value becomes the target state's input.
func (s *StateHandle[In]) LinkWhen(pred func() (In, bool)) LinkHandle {
	return s.makeLink(pred, linkNormal, true)
}

// OnCompleteLink creates an unconditional link into this state that is only
// considered once the source state's task has finished.
func (s *StateHandle[In]) OnCompleteLink(payload In) LinkHandle {
	return s.makeLink(func() (In, bool) { return payload, true }, linkOnComplete, false)
}

// OnCompleteLinkIf is LinkIf restricted to a finished source state.
func (s *StateHandle[In]) OnCompleteLinkIf(pred func() bool, payload In) LinkHandle {
	return s.makeLink(func() (In, bool) {
		var zero In
		if !pred() {
			return zero, false
		}
		return payload, true
	}, linkOnComplete, true)
}

// OnCompleteLinkWhen is LinkWhen restricted to a finished source state.
func (s *StateHandle[In]) OnCompleteLinkWhen(pred func() (In, bool)) LinkHandle {
	return s.makeLink(pred, linkOnComplete, true)
}

func (s *StateHandle[In]) makeLink(pred func() (In, bool), kind linkKind, conditional bool) LinkHandle {
	return LinkHandle{
		targetID:    s.id,
		targetName:  s.name,
		kind:        kind,
		conditional: conditional,
		eval: func() (func() *Task[Void], bool) {
			payload, ok := pred()
			if !ok {
				return nil, false
			}
			return func() *Task[Void] { return s.factory(payload) }, true
		},
	}
}

// VoidStateHandle is the handle to a state whose task factory takes no input,
// or to an exit state (which has no factory at all).
type VoidStateHandle struct {
	id      StateID
	name    string
	factory func() *Task[Void]
	exit    bool
}

func (s *VoidStateHandle) stateID() StateID { return s.id }

// ID returns the id of this state.
func (s *VoidStateHandle) ID() StateID { return s.id }

// Link creates an unconditional Normal link into this state.
func (s *VoidStateHandle) Link() LinkHandle {
	return s.makeLink(func() bool { return true }, linkNormal, false)
}

// LinkIf creates a Normal link that is followed when pred returns true.
func (s *VoidStateHandle) LinkIf(pred func() bool) LinkHandle {
	return s.makeLink(pred, linkNormal, true)
}

// OnCompleteLink creates an unconditional link into this state that is only
// considered once the source state's task has finished.
func (s *VoidStateHandle) OnCompleteLink() LinkHandle {
	return s.makeLink(func() bool { return true }, linkOnComplete, false)
}

// OnCompleteLinkIf is LinkIf restricted to a finished source state.
func (s *VoidStateHandle) OnCompleteLinkIf(pred func() bool) LinkHandle {
	return s.makeLink(pred, linkOnComplete, true)
}

func (s *VoidStateHandle) makeLink(pred func() bool, kind linkKind, conditional bool) LinkHandle {
	return LinkHandle{
		targetID:    s.id,
		targetName:  s.name,
		isExit:      s.exit,
		kind:        kind,
		conditional: conditional,
		eval: func() (func() *Task[Void], bool) {
			if !pred() {
				return nil, false
			}
			if s.exit {
				return nil, true
			}
			return func() *Task[Void] { return s.factory() }, true
		},
	}
}

// =============================================================================
// TaskFSM
// =============================================================================

type internalStateData struct {
	debugName string
	outgoing  []LinkHandle
	linksSet  bool
	isExit    bool
}

// TaskFSM is a finite state machine whose states are task factories and whose
// links are guarded transitions between them. The machine itself runs as a
// single task (see Run); each tick it either follows the first matching link
// out of the current state or resumes the current state's task.
type TaskFSM struct {
	states     []internalStateData
	entryLinks []LinkHandle

	name    string
	logger  Logger
	metrics Metrics
}

// NewTaskFSM creates an empty state machine.
func NewTaskFSM() *TaskFSM {
	return &TaskFSM{
		name:    "fsm",
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
}

// SetName names the machine (used in logs and metrics).
func (f *TaskFSM) SetName(name string) {
	if name != "" {
		f.name = name
	}
}

// SetLogger installs a logger for transition events.
func (f *TaskFSM) SetLogger(logger Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// SetMetrics installs a metrics sink for transition events.
func (f *TaskFSM) SetMetrics(metrics Metrics) {
	if metrics != nil {
		f.metrics = metrics
	}
}

// AddState adds a normal state whose factory takes no input.
func AddState(f *TaskFSM, name string, factory func() *Task[Void]) *VoidStateHandle {
	if factory == nil {
		panic("ticktask: state " + name + " needs a task factory (use AddExitState for exit states)")
	}
	id := f.addStateData(name, false)
	return &VoidStateHandle{id: id, name: name, factory: factory}
}

// AddStateWithInput adds a normal state whose factory takes one typed input,
// supplied by the predicates of links into the state.
func AddStateWithInput[In any](f *TaskFSM, name string, factory func(In) *Task[Void]) *StateHandle[In] {
	if factory == nil {
		panic("ticktask: state " + name + " needs a task factory (use AddExitState for exit states)")
	}
	id := f.addStateData(name, false)
	return &StateHandle[In]{id: id, name: name, factory: factory}
}

// AddExitState adds a terminal state. Entering it ends the FSM task, which
// returns the exit state's id.
func (f *TaskFSM) AddExitState(name string) *VoidStateHandle {
	id := f.addStateData(name, true)
	return &VoidStateHandle{id: id, name: name, exit: true}
}

func (f *TaskFSM) addStateData(name string, isExit bool) StateID {
	id := makeStateID(len(f.states))
	f.states = append(f.states, internalStateData{debugName: name, isExit: isExit})
	return id
}

// EntryLinks defines the machine's prelude: the links evaluated while no
// state has been entered yet. OnComplete links are not allowed here.
func (f *TaskFSM) EntryLinks(links ...LinkHandle) {
	for _, link := range links {
		if link.kind == linkOnComplete {
			panic("ticktask: entry links may not contain OnComplete links")
		}
	}
	f.entryLinks = links
}

// StateLinks defines all outgoing links of origin, in evaluation order.
// May only be called once per state. Among the links, an unconditional
// OnComplete link must be the last OnComplete link (anything after it would
// be unreachable), which also means at most one may be unconditional.
func (f *TaskFSM) StateLinks(origin StateRef, links ...LinkHandle) {
	idx := origin.stateID().Index()
	if idx < 0 || idx >= len(f.states) {
		panic("ticktask: StateLinks on a state that does not belong to this FSM")
	}
	if f.states[idx].linksSet {
		panic("ticktask: outgoing links may only be set once per state")
	}

	seenUnconditional := false
	for _, link := range links {
		if link.kind != linkOnComplete {
			continue
		}
		if seenUnconditional {
			panic("ticktask: OnComplete link after an unconditional OnComplete link is unreachable")
		}
		if !link.conditional {
			seenUnconditional = true
		}
	}

	f.states[idx].outgoing = links
	f.states[idx].linksSet = true
}

// evaluateLinks walks the relevant link list in order and returns the first
// matching transition. OnComplete links are skipped unless the current
// state's task has finished.
func (f *TaskFSM) evaluateLinks(cur StateID, currentDone bool) (pendingTransition, bool) {
	links := f.entryLinks
	if cur.IsValid() {
		links = f.states[cur.Index()].outgoing
	}

	for _, link := range links {
		if link.kind == linkOnComplete && !currentDone {
			continue
		}
		if mk, ok := link.eval(); ok {
			return pendingTransition{
				id:     link.targetID,
				name:   link.targetName,
				isExit: link.isExit,
				make:   mk,
			}, true
		}
	}
	return pendingTransition{}, false
}

// Run begins execution of the state machine as a task. Each tick it follows
// at most one link; a transition runs the optional onTransition callback,
// then the optional debugFn, and only then constructs the new state's task.
// The new task receives stop propagation from the FSM task, and the old
// state's task is killed. Entering an exit state terminates the FSM task,
// returning that state's id.
func (f *TaskFSM) Run(onTransition TransitionFn, debugFn DebugTransitionFn) *Task[StateID] {
	return StartTask(func(tc *TaskContext) StateID {
		var cur StateID
		var task *Task[Void]
		defer func() {
			if task != nil {
				task.Release()
			}
		}()

		tc.SetDebugNameFn("TaskFSM.Run", func() string {
			stateName := entryStateName
			if cur.IsValid() {
				stateName = f.states[cur.Index()].debugName
			}
			stack := "[empty task]"
			if task != nil {
				stack = task.DebugStack()
			}
			return stateName + " -- " + stack
		})

		for {
			currentDone := task == nil || task.IsDone()
			if tr, ok := f.evaluateLinks(cur, currentDone); ok {
				if onTransition != nil {
					onTransition()
				}
				f.notifyTransition(cur, tr, debugFn)

				if tr.isExit {
					return tr.id
				}

				cur = tr.id
				if task != nil {
					tc.RemoveStopTask(task)
				}
				old := task
				task = tr.make()
				if old != nil {
					old.Release()
				}
				tc.AddStopTask(task)
			}

			if task != nil {
				task.Resume()
			}
			tc.Suspend()
		}
	})
}

func (f *TaskFSM) notifyTransition(oldID StateID, tr pendingTransition, debugFn DebugTransitionFn) {
	oldName := entryStateName
	if oldID.IsValid() {
		oldName = f.states[oldID.Index()].debugName
	}

	f.logger.Debug("state transition",
		F("fsm", f.name), F("from", oldName), F("to", tr.name))
	f.metrics.RecordStateTransition(f.name, oldName, tr.name)

	if debugFn != nil {
		debugFn(TransitionDebugData{
			OldStateID:   oldID,
			OldStateName: oldName,
			NewStateID:   tr.id,
			NewStateName: tr.name,
		})
	}
}
