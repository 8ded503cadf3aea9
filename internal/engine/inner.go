package engine

import (
	"context"
	"maps"
	"runtime"
	"slices"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/chojs23/threeway/internal/worddiff"
)

type innerJob struct {
	index             int
	left, base, right string
}

// innerDiffWorker recomputes word-level differences of scheduled hunks after
// a quiet period. At most one computation is in flight; requests made
// meanwhile accumulate and run after it.
type innerDiffWorker struct {
	s     *Session
	exec  Executor
	delay time.Duration

	enabled   bool
	scheduled map[int]struct{}
	timer     *time.Timer
	timerSeq  uint64
	flight    *context.CancelFunc
}

func newInnerDiffWorker(s *Session, exec Executor, delay time.Duration) *innerDiffWorker {
	return &innerDiffWorker{
		s:         s,
		exec:      exec,
		delay:     delay,
		scheduled: make(map[int]struct{}),
	}
}

// SetInnerDiff turns word-level differences on or off. Turning them off
// drops every attached result.
func (s *Session) SetInnerDiff(enabled bool) {
	if enabled {
		s.inner.enable()
	} else {
		s.inner.disable()
	}
}

func (s *Session) InnerDiffEnabled() bool {
	return s.inner.enabled
}

func (w *innerDiffWorker) enable() {
	if w.exec == nil || w.enabled {
		return
	}
	w.enabled = true
	w.scheduleAll()
}

func (w *innerDiffWorker) disable() {
	w.enabled = false
	w.cancelPending()
	for _, ch := range w.s.changes {
		if ch.inner != nil {
			ch.inner = nil
			w.s.observer.ChangeUpdated(ch.index)
		}
	}
}

func (w *innerDiffWorker) schedule(index int) {
	if !w.enabled {
		return
	}
	w.scheduled[index] = struct{}{}
	w.arm()
}

func (w *innerDiffWorker) scheduleAll() {
	for i := range w.s.changes {
		w.schedule(i)
	}
}

func (w *innerDiffWorker) arm() {
	if w.flight != nil || w.timer != nil {
		return
	}
	w.timerSeq++
	seq := w.timerSeq
	w.timer = time.AfterFunc(w.delay, func() {
		w.exec.Post(func() { w.fire(seq) })
	})
}

// cancelPending stops the timer and any computation and forgets every
// scheduled index.
func (w *innerDiffWorker) cancelPending() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerSeq++
	if w.flight != nil {
		(*w.flight)()
		w.flight = nil
	}
	clear(w.scheduled)
}

func (w *innerDiffWorker) fire(seq uint64) {
	if seq != w.timerSeq || !w.enabled {
		return
	}
	w.timer = nil

	var jobs []innerJob
	for _, i := range slices.Sorted(maps.Keys(w.scheduled)) {
		if i >= len(w.s.changes) {
			continue
		}
		ch := w.s.changes[i]
		if ch.IsResolved() {
			ch.inner = nil
			continue
		}
		jobs = append(jobs, innerJob{
			index: i,
			left:  worddiff.JoinLines(w.s.input.span(Left, ch.fragment)),
			base:  worddiff.JoinLines(w.s.OutputLines(i)),
			right: worddiff.JoinLines(w.s.input.span(Right, ch.fragment)),
		})
	}
	clear(w.scheduled)
	if len(jobs) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	flight := &cancel
	w.flight = flight
	gen := w.s.generation
	glog.V(1).Infof("inner diff: computing %d hunks", len(jobs))

	go func() {
		results := make([]*worddiff.Result, len(jobs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for k, job := range jobs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := worddiff.Compare(job.left, job.base, job.right)
				if err != nil {
					glog.Warningf("inner diff: hunk %d: %v", job.index, err)
					return nil
				}
				results[k] = &res
				return nil
			})
		}
		err := g.Wait()
		w.exec.Post(func() { w.apply(flight, gen, jobs, results, err) })
	}()
}

func (w *innerDiffWorker) apply(flight *context.CancelFunc, gen uint64, jobs []innerJob, results []*worddiff.Result, err error) {
	if w.flight != flight {
		glog.V(2).Infof("inner diff: dropping cancelled result")
		return
	}
	(*flight)()
	w.flight = nil

	if err == nil && gen == w.s.generation && w.enabled {
		for k, job := range jobs {
			if _, again := w.scheduled[job.index]; again || results[k] == nil {
				continue
			}
			if job.index >= len(w.s.changes) {
				continue
			}
			ch := w.s.changes[job.index]
			if ch.IsResolved() {
				continue
			}
			ch.inner = results[k]
			w.s.observer.ChangeUpdated(job.index)
		}
	} else {
		glog.V(2).Infof("inner diff: dropping stale result")
	}

	if len(w.scheduled) > 0 {
		w.arm()
	}
}
