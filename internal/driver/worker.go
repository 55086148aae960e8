// SPDX-License-Identifier: MIT
package driver

import (
	"fmt"
	"sync"
)

// Kind tags a Message.
type Kind int

const (
	KindProcess Kind = iota
	KindResult
	KindResetRate
)

func (k Kind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindResult:
		return "result"
	case KindResetRate:
		return "resetRate"
	default:
		return "unknown"
	}
}

// Message is the envelope exchanged with the worker goroutine. Exactly one
// payload field is meaningful for a given Kind; Epoch tags ResetRate.
type Message struct {
	Kind    Kind
	Epoch   uint64
	Request ProcessRequest
	Result  Result
}

// Path is the active compute path. Only the frame goroutine calls it.
type Path interface {
	// Submit hands over a request; it never blocks.
	Submit(req ProcessRequest)
	// Latest returns the newest result available, if any.
	Latest() (Result, bool)
	// Reset clears engine and buffer state; later results carry epoch.
	Reset(epoch uint64)
	// Parallel reports whether computation runs off the frame goroutine.
	Parallel() bool
	Close() error
}

// WorkerFactory starts a parallel compute path around p.
type WorkerFactory func(p *Processor) (Path, error)

// Inline computes on the calling goroutine.
type Inline struct {
	proc *Processor
	last Result
	ok   bool
}

// NewInline wraps p for synchronous use.
func NewInline(p *Processor) *Inline {
	return &Inline{proc: p}
}

func (i *Inline) Submit(req ProcessRequest) {
	i.last = i.proc.Process(req)
	i.ok = true
}

func (i *Inline) Latest() (Result, bool) { return i.last, i.ok }

func (i *Inline) Reset(epoch uint64) {
	i.proc.Reset()
	i.ok = false
}

func (i *Inline) Parallel() bool { return false }

func (i *Inline) Close() error { return nil }

// Worker runs a Processor on a dedicated goroutine. Requests and results
// travel as Messages over channels; the processor is never touched from
// outside the worker goroutine.
type Worker struct {
	inbox   chan Message
	results chan Message
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	// Owned by the caller's goroutine.
	last Result
	ok   bool
}

const workerInboxSize = 4

// StartWorker is the default WorkerFactory.
func StartWorker(p *Processor) (Path, error) {
	if p == nil {
		return nil, fmt.Errorf("worker: processor cannot be nil")
	}
	w := &Worker{
		inbox:   make(chan Message, workerInboxSize),
		results: make(chan Message, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run(p)
	return w, nil
}

func (w *Worker) run(p *Processor) {
	defer w.wg.Done()
	var epoch uint64
	for {
		select {
		case <-w.done:
			return
		case msg := <-w.inbox:
			switch msg.Kind {
			case KindResetRate:
				epoch = msg.Epoch
				p.Reset()
			case KindProcess:
				if msg.Request.Epoch < epoch {
					continue // queued before the last reset
				}
				w.publish(Message{Kind: KindResult, Result: p.Process(msg.Request)})
			}
		}
	}
}

// publish keeps only the newest result; a superseded one is discarded.
func (w *Worker) publish(msg Message) {
	select {
	case w.results <- msg:
		return
	default:
	}
	select {
	case <-w.results:
	default:
	}
	w.results <- msg
}

// Submit queues a process request, dropping it when the worker is behind.
func (w *Worker) Submit(req ProcessRequest) {
	select {
	case w.inbox <- Message{Kind: KindProcess, Request: req}:
	default:
	}
}

// Latest drains the result channel and returns the newest result seen.
func (w *Worker) Latest() (Result, bool) {
	for {
		select {
		case msg := <-w.results:
			w.last, w.ok = msg.Result, true
		default:
			return w.last, w.ok
		}
	}
}

// Reset is always delivered, unlike Submit.
func (w *Worker) Reset(epoch uint64) {
	w.ok = false
	select {
	case w.inbox <- Message{Kind: KindResetRate, Epoch: epoch}:
	case <-w.done:
	}
}

func (w *Worker) Parallel() bool { return true }

// Close stops the worker goroutine and waits for it to exit.
func (w *Worker) Close() error {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()
	return nil
}

var (
	_ Path = (*Inline)(nil)
	_ Path = (*Worker)(nil)
)
