package command

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/atomicstack/popup-tree/internal/tree"
)

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	var gotArgs []string
	r.Register("echo", func(ctx context.Context, args []string) (Outcome, error) {
		gotArgs = args
		return Outcome{Info: "echoed", Quit: true}, nil
	})
	var outcomes []Outcome
	r.OnResult(func(o Outcome) { outcomes = append(outcomes, o) })

	if err := r.Execute(context.Background(), tree.Command{ID: "echo", Arguments: []string{"a", "b"}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !reflect.DeepEqual(gotArgs, []string{"a", "b"}) {
		t.Fatalf("args = %v", gotArgs)
	}
	if !reflect.DeepEqual(outcomes, []Outcome{{Info: "echoed", Quit: true}}) {
		t.Fatalf("outcomes = %v", outcomes)
	}
	if !reflect.DeepEqual(r.IDs(), []string{"echo"}) {
		t.Fatalf("ids = %v", r.IDs())
	}
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.Execute(context.Background(), tree.Command{ID: "missing"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	boom := errors.New("boom")
	r.Register("fail", func(ctx context.Context, args []string) (Outcome, error) { return Outcome{}, boom })
	called := false
	r.OnResult(func(Outcome) { called = true })
	if err := r.Execute(context.Background(), tree.Command{ID: "fail"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if called {
		t.Fatalf("failed commands must not report an outcome")
	}
}

func TestBusExecute(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "bus")
	bus := New(ctx)
	var seen interface{}
	msg := bus.Execute(Request{ID: "op", Label: "Op", Run: func(ctx context.Context) error {
		seen = ctx.Value(ctxKey{})
		return errors.New("nope")
	}})()
	done, ok := msg.(Done)
	if !ok || done.ID != "op" || done.Err == nil {
		t.Fatalf("unexpected message %#v", msg)
	}
	if seen != "bus" {
		t.Fatalf("request should run under the bus context")
	}
	if msg := bus.Execute(Request{ID: "empty"})(); msg.(Done).Err != nil {
		t.Fatalf("empty request should succeed, got %#v", msg)
	}
}
