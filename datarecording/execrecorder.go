package datarecording

import (
	"os"
	"strings"
	"sync"
	"time"
)

// ExecInfo is one property of a recorded run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecTable is the table that describes the recorded run.
const ExecTable = "exec_info"

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// execRecorder records when and how the program ran.
type execRecorder struct {
	recorder DataRecorder
	once     sync.Once
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	recorder.CreateTable(ExecTable, ExecInfo{})

	return &execRecorder{recorder: recorder}
}

// Start records the start time, the command line and the working directory.
func (e *execRecorder) Start() {
	e.recorder.InsertData(ExecTable,
		ExecInfo{"Start Time", time.Now().Format(execTimeFormat)})
	e.recorder.InsertData(ExecTable,
		ExecInfo{"Command", strings.Join(os.Args, " ")})

	if cwd, err := os.Getwd(); err == nil {
		e.recorder.InsertData(ExecTable, ExecInfo{"Working Directory", cwd})
	}
}

// End records the end time once.
func (e *execRecorder) End() {
	e.once.Do(func() {
		e.recorder.InsertData(ExecTable,
			ExecInfo{"End Time", time.Now().Format(execTimeFormat)})
	})
}
