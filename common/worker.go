package common

import (
	"runtime"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// StopWorkerPool ends every worker goroutine of p and marks it stopped.
// A stop signal from Stop can be taken by the wrong worker and dropped, so each
// worker is also handed one task that exits its goroutine. A nil pool is a no-op.
//
// Parameters:
//   - p: the pool to stop, must not receive tasks afterwards
func StopWorkerPool(p worker.DynamicWorkerPool) {
	if p == nil {
		return
	}
	for i := range p.GetMaxWorkers() {
		p.SubmitTask(worker.Task{
			ID: -1 - i,
			Do: func() (any, error) {
				runtime.Goexit()
				return nil, nil
			},
		})
	}
	p.Stop()
}
