package tasks_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/tasks"
	"go.uber.org/zap"
)

func stopWithin(t *testing.T, r *tasks.Runner, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return r.Stop(ctx)
}

func TestRunner_RunsImmediatelyAndRecordsStatus(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	ran := make(chan struct{}, 1)
	runner.Register(tasks.Job{
		Name:     "sweep",
		Interval: time.Hour,
		Run: func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	})
	runner.Start()
	runner.Start() // second call is a no-op

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}
	if err := stopWithin(t, runner, 5*time.Second); err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}

	st := runner.Status()
	if len(st) != 1 || st[0].Runs != 1 || st[0].Failures != 0 || st[0].Running {
		t.Errorf("Status() = %+v", st)
	}
	if st[0].LastRun.IsZero() {
		t.Error("LastRun not recorded")
	}
}

func TestRunner_Delay(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	var runs atomic.Int32
	runner.Register(tasks.Job{
		Name:     "delayed",
		Interval: time.Hour,
		Delay:    time.Hour,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	runner.Start()
	time.Sleep(50 * time.Millisecond)

	// Stop must not wait for the delay to elapse.
	if err := stopWithin(t, runner, time.Second); err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}
	if runs.Load() != 0 {
		t.Errorf("delayed job ran %d times", runs.Load())
	}
}

func TestRunner_Repeats(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	var a, b atomic.Int32
	runner.Register(tasks.Job{Name: "a", Interval: 20 * time.Millisecond, Run: func(context.Context) error { a.Add(1); return nil }})
	runner.Register(tasks.Job{Name: "b", Interval: 20 * time.Millisecond, Run: func(context.Context) error { b.Add(1); return nil }})
	runner.Start()
	time.Sleep(150 * time.Millisecond)

	if err := stopWithin(t, runner, 5*time.Second); err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}
	if a.Load() < 2 || b.Load() < 2 {
		t.Errorf("runs = %d, %d; want at least 2 each", a.Load(), b.Load())
	}
}

func TestRunner_Timeout(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	runner.Register(tasks.Job{
		Name:     "slow",
		Interval: time.Hour,
		Timeout:  20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	err := runner.RunOnce(context.Background(), "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunOnce() = %v, want DeadlineExceeded", err)
	}
	st := runner.Status()[0]
	if st.Failures != 1 || st.LastError == "" {
		t.Errorf("Status() = %+v, want one recorded failure", st)
	}
}

func TestRunner_StopWithTimeout(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	inRun := make(chan struct{})
	release := make(chan struct{})
	runner.Register(tasks.Job{
		Name:     "stubborn",
		Interval: time.Hour,
		Run: func(context.Context) error {
			close(inRun)
			// Ignores its context.
			<-release
			return nil
		},
	})
	runner.Start()
	<-inRun

	err := stopWithin(t, runner, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() = %v, want DeadlineExceeded", err)
	}
	if st := runner.Status()[0]; !st.Running {
		t.Error("stubborn job should still be reported as running")
	}
	close(release)
}

func TestRunner_ContextCancelledOnStop(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	cancelled := make(chan struct{})
	started := make(chan struct{})
	runner.Register(tasks.Job{
		Name:     "waiter",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		},
	})
	runner.Start()
	<-started

	if err := stopWithin(t, runner, 5*time.Second); err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("job context was not cancelled")
	}
	// Cancellation during shutdown still counts as a run.
	if st := runner.Status()[0]; st.Runs != 1 {
		t.Errorf("Runs = %d, want 1", st.Runs)
	}
}

func TestRunner_RunOnce(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	var runs atomic.Int32
	runner.Register(tasks.Job{Name: "manual", Interval: time.Hour, Run: func(context.Context) error { runs.Add(1); return nil }})

	if err := runner.RunOnce(context.Background(), "manual"); err != nil {
		t.Errorf("RunOnce() returned error: %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
	if err := runner.RunOnce(context.Background(), "missing"); !errors.Is(err, tasks.ErrUnknownJob) {
		t.Errorf("RunOnce(missing) = %v, want ErrUnknownJob", err)
	}
}

func TestRunner_RegisterDefaultsAndDuplicates(t *testing.T) {
	runner := tasks.New(nil)
	noop := func(context.Context) error { return nil }
	runner.Register(tasks.Job{Name: "a", Run: noop})
	runner.Register(tasks.Job{Name: "b", Interval: time.Minute, Run: noop})
	runner.Register(tasks.Job{Name: "a", Interval: time.Second, Run: noop})

	names := runner.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	if st := runner.Status(); st[0].Interval != time.Hour {
		t.Errorf("default interval = %v, want 1h", st[0].Interval)
	}
}
