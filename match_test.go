package xhab

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		msg    Message
		filter Message
		want   bool
	}{
		{
			name:   "empty filter is a wildcard",
			msg:    Message{"type": "device.event.enabled", "device": "d1"},
			filter: Message{},
			want:   true,
		},
		{
			name:   "empty filter matches empty message",
			msg:    Message{},
			filter: Message{},
			want:   true,
		},
		{
			name:   "type key equal",
			msg:    Message{"type": "x", "payload": 1},
			filter: Message{"type": "x"},
			want:   true,
		},
		{
			name:   "type key differs",
			msg:    Message{"type": "y", "payload": 1},
			filter: Message{"type": "x"},
			want:   false,
		},
		{
			name:   "subset ignores extra message keys",
			msg:    Message{"a": 1, "b": 2},
			filter: Message{"a": 1},
			want:   true,
		},
		{
			name:   "all filter keys must hold",
			msg:    Message{"a": 1, "b": 2},
			filter: Message{"a": 1, "b": 3},
			want:   false,
		},
		{
			name:   "filter key missing from message",
			msg:    Message{"a": 1},
			filter: Message{"b": 1},
			want:   false,
		},
		{
			name:   "numeric widths compare by value",
			msg:    Message{"level": int64(42)},
			filter: Message{"level": 42},
			want:   true,
		},
		{
			name:   "float vs int same value",
			msg:    Message{"level": 42.0},
			filter: Message{"level": 42},
			want:   true,
		},
		{
			name:   "float vs int different value",
			msg:    Message{"level": 42.5},
			filter: Message{"level": 42},
			want:   false,
		},
		{
			name:   "number never equals numeric string",
			msg:    Message{"level": "42"},
			filter: Message{"level": 42},
			want:   false,
		},
		{
			name:   "strings are case-sensitive",
			msg:    Message{"type": "X"},
			filter: Message{"type": "x"},
			want:   false,
		},
		{
			name:   "bool equality",
			msg:    Message{"on": true},
			filter: Message{"on": true},
			want:   true,
		},
		{
			name:   "nil filter value requires nil message value",
			msg:    Message{"v": nil},
			filter: Message{"v": nil},
			want:   true,
		},
		{
			name:   "nil filter value rejects present value",
			msg:    Message{"v": 1},
			filter: Message{"v": nil},
			want:   false,
		},
		{
			name:   "byte sequences compare by content",
			msg:    Message{"raw": []byte{1, 2, 3}},
			filter: Message{"raw": []byte{1, 2, 3}},
			want:   true,
		},
		{
			name:   "nested map applies subset rule recursively",
			msg:    Message{"state": map[string]any{"power": true, "level": 80}},
			filter: Message{"state": map[string]any{"power": true}},
			want:   true,
		},
		{
			name:   "nested map sub-match failure",
			msg:    Message{"state": map[string]any{"power": true, "level": 80}},
			filter: Message{"state": map[string]any{"power": false}},
			want:   false,
		},
		{
			name:   "nested filter against scalar value",
			msg:    Message{"state": "on"},
			filter: Message{"state": map[string]any{"power": true}},
			want:   false,
		},
		{
			name:   "Message-typed nested values",
			msg:    Message{"state": Message{"power": true}},
			filter: Message{"state": map[string]any{"power": true}},
			want:   true,
		},
		{
			name:   "slices compare elementwise",
			msg:    Message{"tags": []any{"a", int64(1)}},
			filter: Message{"tags": []any{"a", 1}},
			want:   true,
		},
		{
			name:   "slice length mismatch",
			msg:    Message{"tags": []any{"a", "b"}},
			filter: Message{"tags": []any{"a"}},
			want:   false,
		},
		{
			name:   "typed slices compare by content without panicking",
			msg:    Message{"tags": []string{"kitchen", "lights"}},
			filter: Message{"tags": []string{"kitchen", "lights"}},
			want:   true,
		},
		{
			name:   "typed slice content mismatch",
			msg:    Message{"tags": []string{"kitchen"}},
			filter: Message{"tags": []string{"bedroom"}},
			want:   false,
		},
		{
			name:   "typed map values compare deeply",
			msg:    Message{"scenes": map[string]int{"evening": 2}},
			filter: Message{"scenes": map[string]int{"evening": 2}},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.msg, tt.filter); got != tt.want {
				t.Errorf("Match(%v, %v) = %v, want %v", tt.msg, tt.filter, got, tt.want)
			}
		})
	}
}

func TestMatchIsPure(t *testing.T) {
	msg := Message{"type": "x", "nested": map[string]any{"a": 1}}
	filter := Message{"type": "x", "nested": map[string]any{"a": 1}}

	for i := 0; i < 3; i++ {
		if !Match(msg, filter) {
			t.Fatalf("run %d: expected match", i)
		}
	}
	if len(msg) != 2 || len(filter) != 2 {
		t.Fatal("matcher mutated its inputs")
	}
}
