package fetchkit

import (
	"context"
	"errors"
	"testing"
)

func TestInflightBeginSupersedes(t *testing.T) {
	registry := newInflightRegistry()

	ctx1, handle1, superseded := registry.begin(context.Background(), "GET::https://api.test/a")
	if superseded {
		t.Error("First registration must not be superseded")
	}

	ctx2, _, superseded := registry.begin(context.Background(), "GET::https://api.test/a")
	if !superseded {
		t.Error("Second registration must supersede the first")
	}

	select {
	case <-ctx1.Done():
		if cause := context.Cause(ctx1); !errors.Is(cause, ErrSuperseded) {
			t.Errorf("Expected ErrSuperseded cause, got %v", cause)
		}
	default:
		t.Error("First context must be cancelled on supersession")
	}
	if ctx2.Err() != nil {
		t.Error("Second context must remain live")
	}
	if registry.size() != 1 {
		t.Errorf("Expected one registered key, got %d", registry.size())
	}
	_ = handle1
}

func TestInflightFinishKeepsSuccessor(t *testing.T) {
	registry := newInflightRegistry()
	key := "GET::https://api.test/a"

	_, handle1, _ := registry.begin(context.Background(), key)
	ctx2, handle2, _ := registry.begin(context.Background(), key)

	// The superseded request settles and must not evict its successor.
	registry.finish(key, handle1)
	if registry.size() != 1 {
		t.Errorf("Expected successor to stay registered, got %d entries", registry.size())
	}
	if ctx2.Err() != nil {
		t.Error("Successor context must remain live after predecessor finish")
	}

	registry.finish(key, handle2)
	if registry.size() != 0 {
		t.Errorf("Expected empty registry, got %d entries", registry.size())
	}
}

func TestInflightDistinctKeys(t *testing.T) {
	registry := newInflightRegistry()

	ctxGet, _, _ := registry.begin(context.Background(), "GET::https://api.test/a")
	ctxDel, _, superseded := registry.begin(context.Background(), "DELETE::https://api.test/a")
	if superseded {
		t.Error("Different methods must not supersede each other")
	}
	if ctxGet.Err() != nil || ctxDel.Err() != nil {
		t.Error("Both contexts must remain live")
	}
	if registry.size() != 2 {
		t.Errorf("Expected two registered keys, got %d", registry.size())
	}
}

func TestInflightAbortAll(t *testing.T) {
	registry := newInflightRegistry()

	ctx1, _, _ := registry.begin(context.Background(), "GET::https://api.test/a")
	ctx2, _, _ := registry.begin(context.Background(), "POST::https://api.test/b")

	if n := registry.abortAll(); n != 2 {
		t.Errorf("Expected 2 aborted handles, got %d", n)
	}
	for _, ctx := range []context.Context{ctx1, ctx2} {
		if ctx.Err() == nil {
			t.Error("Expected cancelled context after abortAll")
			continue
		}
		if cause := context.Cause(ctx); !errors.Is(cause, ErrAborted) {
			t.Errorf("Expected ErrAborted cause, got %v", cause)
		}
	}
	if registry.size() != 0 {
		t.Errorf("Expected cleared registry, got %d entries", registry.size())
	}

	// A key aborted earlier starts fresh.
	ctx3, _, superseded := registry.begin(context.Background(), "GET::https://api.test/a")
	if superseded {
		t.Error("Aborted key must not count as superseded")
	}
	if ctx3.Err() != nil {
		t.Error("Fresh registration after abortAll must be live")
	}
}
