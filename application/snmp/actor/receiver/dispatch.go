package receiver

import (
	"sync"

	"snmp-stack/application/snmp"
	"snmp-stack/lib/ds/queue"
)

type notification struct {
	host string
	port int
	msg  *snmp.Message
}

type dispatcher interface {
	// dispatch never blocks. It reports false if n was dropped.
	dispatch(n notification) bool
	// close waits for running handlers. Queued notifications are dropped.
	close()
}

func newDispatcher(opts DispatchOptions, run func(notification)) dispatcher {
	if opts.Workers == 0 {
		return &spawnDispatcher{run: run}
	}
	return newPoolDispatcher(opts.Workers, opts.Backlog, run)
}

type spawnDispatcher struct {
	run func(notification)
	wg  sync.WaitGroup
}

func (d *spawnDispatcher) dispatch(n notification) bool {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(n)
	}()
	return true
}

func (d *spawnDispatcher) close() { d.wg.Wait() }

type poolDispatcher struct {
	run func(notification)

	backlog queue.Queue[notification]
	closed  bool
	mu      sync.Mutex
	cond    *sync.Cond

	wg sync.WaitGroup
}

func newPoolDispatcher(workers, backlog uint, run func(notification)) *poolDispatcher {
	d := &poolDispatcher{run: run}
	d.cond = sync.NewCond(&d.mu)

	if backlog == 0 {
		d.backlog = queue.NewNaive[notification](workers)
	} else {
		d.backlog = queue.NewCircular[notification](backlog)
	}

	for range workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.work()
		}()
	}

	return d
}

func (d *poolDispatcher) dispatch(n notification) bool {
	d.mu.Lock()
	ok := !d.closed && d.backlog.Enqueue(n)
	d.mu.Unlock()

	if ok {
		d.cond.Signal()
	}
	return ok
}

func (d *poolDispatcher) work() {
	for {
		d.mu.Lock()
		for d.backlog.Len() == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		n, _ := d.backlog.Dequeue()
		d.mu.Unlock()

		d.run(n)
	}
}

func (d *poolDispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cond.Broadcast()
	d.wg.Wait()
}
