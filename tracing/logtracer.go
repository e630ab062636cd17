package tracing

import (
	"log"

	"github.com/sarchlab/tlbsim/sim"
)

// LogTracer prints every task event as one line.
type LogTracer struct {
	logger     *log.Logger
	timeTeller sim.TimeTeller
}

// NewLogTracer creates a tracer that writes to the logger.
func NewLogTracer(logger *log.Logger, timeTeller sim.TimeTeller) *LogTracer {
	return &LogTracer{
		logger:     logger,
		timeTeller: timeTeller,
	}
}

// StartTask prints the start of a task.
func (t *LogTracer) StartTask(task Task) {
	t.logger.Printf("%d, %s, start, %s, %s, %s\n",
		t.timeTeller.CurrentCycle(), task.Location, task.ID, task.Kind, task.What)
}

// StepTask prints a step of a task.
func (t *LogTracer) StepTask(task Task) {
	t.logger.Printf("%d, %s, step, %s, %s\n",
		t.timeTeller.CurrentCycle(), task.Location, task.ID, task.Steps[0].What)
}

// EndTask prints the end of a task.
func (t *LogTracer) EndTask(task Task) {
	t.logger.Printf("%d, %s, end, %s\n",
		t.timeTeller.CurrentCycle(), task.Location, task.ID)
}
