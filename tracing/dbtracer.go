package tracing

import (
	"sync"

	"github.com/sarchlab/tlbsim/datarecording"
	"github.com/sarchlab/tlbsim/sim"
	"github.com/tebeka/atexit"
)

type taskTableEntry struct {
	ID         string
	ParentID   string
	Kind       string
	What       string
	Location   string
	StartCycle uint64
	EndCycle   uint64
	NumSteps   int
}

type stepTableEntry struct {
	TaskID string
	Cycle  uint64
	What   string
}

const (
	taskTableName = "trace"
	stepTableName = "trace_steps"
)

// DBTracer is a tracer that stores the completed tasks into a data recorder.
// Tasks still in flight when the tracer terminates are dropped.
type DBTracer struct {
	mu           sync.Mutex
	timeTeller   sim.TimeTeller
	backend      datarecording.DataRecorder
	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(taskTableName, taskTableEntry{})
	dataRecorder.CreateTable(stepTableName, stepTableEntry{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startingTaskMustBeValid(task)

	task.StartCycle = t.timeTeller.CurrentCycle()
	t.tracingTasks[task.ID] = task
}

func startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Location == "" {
		panic("task location must be set")
	}
}

// StepTask records a step of a task in flight.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	now := t.timeTeller.CurrentCycle()
	for _, step := range task.Steps {
		step.Cycle = now
		originalTask.Steps = append(originalTask.Steps, step)
	}

	t.tracingTasks[task.ID] = originalTask
}

// EndTask marks the end of a task and writes it to the backend.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	originalTask.EndCycle = t.timeTeller.CurrentCycle()
	t.writeTask(originalTask)

	delete(t.tracingTasks, task.ID)
}

func (t *DBTracer) writeTask(task Task) {
	t.backend.InsertData(taskTableName, taskTableEntry{
		ID:         task.ID,
		ParentID:   task.ParentID,
		Kind:       task.Kind,
		What:       task.What,
		Location:   task.Location,
		StartCycle: task.StartCycle,
		EndCycle:   task.EndCycle,
		NumSteps:   len(task.Steps),
	})

	for _, step := range task.Steps {
		t.backend.InsertData(stepTableName, stepTableEntry{
			TaskID: task.ID,
			Cycle:  step.Cycle,
			What:   step.What,
		})
	}
}

// NumInflightTasks returns the number of tasks started but not ended.
func (t *DBTracer) NumInflightTasks() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tracingTasks)
}

// Terminate drops the tasks in flight and flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}
