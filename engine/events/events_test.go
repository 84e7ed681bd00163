package events

import (
	"testing"

	"github.com/nathoo/tinytalkers/types"
)

func TestDispatch_ByType(t *testing.T) {
	b := NewBus()
	var spoken []string
	b.On("speak", func(e types.Event) { spoken = append(spoken, String(e, "text")) })

	evts := []types.Event{
		{Type: "speak", Data: map[string]any{"text": "hello"}},
		{Type: "explain", Data: map[string]any{"question": "why?"}},
		{Type: "speak", Data: map[string]any{"text": "bye"}},
	}
	calls := b.Dispatch(evts)
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(spoken) != 2 || spoken[0] != "hello" || spoken[1] != "bye" {
		t.Errorf("spoken = %v", spoken)
	}
}

func TestDispatch_Any(t *testing.T) {
	b := NewBus()
	var seen []string
	b.On(Any, func(e types.Event) { seen = append(seen, e.Type) })
	b.On("speak", func(types.Event) { seen = append(seen, "handler") })

	b.Dispatch([]types.Event{{Type: "speak"}, {Type: "npc_nearby"}})
	want := []string{"handler", "speak", "npc_nearby"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestDispatch_NilBusAndNoEvents(t *testing.T) {
	var nilBus *Bus
	if n := nilBus.Dispatch([]types.Event{{Type: "speak"}}); n != 0 {
		t.Errorf("nil bus calls = %d", n)
	}
	if n := NewBus().Dispatch(nil); n != 0 {
		t.Errorf("empty events calls = %d", n)
	}
}

func TestFilter(t *testing.T) {
	evts := []types.Event{{Type: "a"}, {Type: "b"}, {Type: "a"}}
	if got := Filter(evts, "a"); len(got) != 2 {
		t.Errorf("Filter(a) = %v", got)
	}
	if got := Filter(evts, "c"); got != nil {
		t.Errorf("Filter(c) = %v, want nil", got)
	}
}

func TestAccessors(t *testing.T) {
	e := types.Event{Data: map[string]any{"s": "x", "n": 4, "b": true, "wrong": 1.5}}
	if String(e, "s") != "x" || Int(e, "n") != 4 || !Bool(e, "b") {
		t.Errorf("accessors failed on %v", e.Data)
	}
	if String(e, "missing") != "" || Int(e, "wrong") != 0 || Bool(e, "s") {
		t.Error("mismatched types should yield zero values")
	}
}
