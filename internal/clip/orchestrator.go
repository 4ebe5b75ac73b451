package clip

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/arbordev/arbor/internal/ports"
	"github.com/arbordev/arbor/internal/tree"
)

// PasteDone is invoked once per landed item with the folder the batch
// targets and the destination path that materialized. There is no
// batch-level completion signal; the last invocation is the end.
type PasteDone func(folder *tree.Node, destination string)

type opResult struct {
	dest string
	err  error
}

// Orchestrator replays clipboard batches through FileOps. Batches are
// strictly serialized: a second paste submitted while one is in flight
// waits for the first to finish, and within a batch each operation is
// submitted only after the previous one's callback fired.
type Orchestrator struct {
	ops ports.FileOps
	log *slog.Logger

	mu sync.Mutex // held for the duration of one batch
}

// NewOrchestrator returns an orchestrator driving the given FileOps.
func NewOrchestrator(ops ports.FileOps, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{ops: ops, log: log}
}

// Paste drains the clipboard and replays the batch into folder. The
// clipboard is emptied synchronously, before any operation is submitted.
// An empty clipboard is a complete no-op. done may be nil.
func (o *Orchestrator) Paste(cb *Clipboard, folder *tree.Node, done PasteDone) {
	batch := cb.Drain()
	if len(batch) == 0 {
		return
	}
	go o.run(batch, folder, done)
}

func (o *Orchestrator) run(batch []Entry, folder *tree.Node, done PasteDone) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, item := range batch {
		dst := filepath.Join(folder.Path, item.Name)
		wait := make(chan opResult, 1)
		settle := func(src, dest string, err error) {
			wait <- opResult{dest: dest, err: err}
		}

		switch item.Action {
		case ActionCut:
			o.ops.MoveNode(item.Path, dst, settle)
		default:
			o.ops.CopyNode(item.Path, dst, settle)
		}

		res := <-wait
		if res.err != nil {
			// A failed item does not stall the rest of the batch.
			o.log.Error("paste failed", "action", item.Action, "src", item.Path, "dst", dst, "err", res.err)
			continue
		}
		o.log.Debug("paste item done", "action", item.Action, "src", item.Path, "dst", res.dest)
		if done != nil {
			done(folder, res.dest)
		}
	}
}
