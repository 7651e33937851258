package pagerender

import (
	"context"
	"errors"
	"testing"
	"time"
)

// funcRenderer adapts a closure to PageRenderer for watchdog tests.
type funcRenderer func(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error)

func (f funcRenderer) RenderPage(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
	return f(ctx, h, params)
}

func TestWatchdogDisabled(t *testing.T) {
	h := fastPathHandle(vectorPage(10, 10))
	var sawDeadline bool
	r := funcRenderer(func(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
		_, sawDeadline = ctx.Deadline()
		return NewPixmap(1, 1), nil
	})

	pix, err := renderWithWatchdog(context.Background(), r, h, RenderParams{Width: 1, Height: 1}, 0)
	if err != nil || pix == nil {
		t.Fatalf("renderWithWatchdog() = (%v, %v)", pix, err)
	}
	if sawDeadline {
		t.Error("timeout <= 0 should not impose a deadline")
	}
}

func TestWatchdogPassThrough(t *testing.T) {
	h := fastPathHandle(vectorPage(10, 10))
	want := errors.New("renderer broke")
	r := funcRenderer(func(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
		return nil, want
	})

	_, err := renderWithWatchdog(context.Background(), r, h, RenderParams{}, time.Second)
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want the renderer's own error", err)
	}
}

func TestWatchdogAbandonsStuckPage(t *testing.T) {
	h := fastPathHandle(vectorPage(10, 10))
	h.index = 7
	released := make(chan struct{})
	r := funcRenderer(func(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
		// Ignore the context entirely, like a stuck content interpreter.
		<-released
		return NewPixmap(1, 1), nil
	})

	start := time.Now()
	_, err := renderWithWatchdog(context.Background(), r, h, RenderParams{}, 20*time.Millisecond)
	close(released)

	var hang *HangTimeoutError
	if !errors.As(err, &hang) {
		t.Fatalf("err = %v, want *HangTimeoutError", err)
	}
	if hang.Page != 7 {
		t.Errorf("HangTimeoutError.Page = %d, want 7", hang.Page)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("watchdog waited %v for a stuck renderer", elapsed)
	}
}

func TestWatchdogCooperativeTimeout(t *testing.T) {
	// A renderer that honors the context returns DeadlineExceeded itself;
	// the watchdog still reports it as a hang.
	h := fastPathHandle(vectorPage(10, 10))
	r := funcRenderer(func(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := renderWithWatchdog(context.Background(), r, h, RenderParams{}, 10*time.Millisecond)
	var hang *HangTimeoutError
	if !errors.As(err, &hang) {
		t.Errorf("err = %v, want *HangTimeoutError", err)
	}
}

func TestWatchdogParentCancellation(t *testing.T) {
	h := fastPathHandle(vectorPage(10, 10))
	r := funcRenderer(func(ctx context.Context, h *PageHandle, params RenderParams) (*Pixmap, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := renderWithWatchdog(ctx, r, h, RenderParams{}, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled (not a hang)", err)
	}
	var hang *HangTimeoutError
	if errors.As(err, &hang) {
		t.Error("operation cancellation misreported as a page hang")
	}
}
