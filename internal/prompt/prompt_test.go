package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		root     *Node
		wantErr  bool
		wantPath string
	}{
		{
			name: "flat messages",
			root: Region(
				NewMessage(RoleSystem, Text("be brief")),
				NewMessage(RoleUser, Text("hi")),
			),
		},
		{
			name: "message inside plain regions",
			root: Region(Region(Region(NewMessage(RoleUser, Text("hi"))))),
		},
		{
			name: "directly nested message",
			root: Region(
				NewMessage(RoleUser, NewMessage(RoleAssistant, Text("no")).With(WithID("inner"))),
			),
			wantErr:  true,
			wantPath: "root/0/0",
		},
		{
			name: "nested through plain region",
			root: NewMessage(RoleUser,
				Text("a"),
				Region(Text("b"), NewMessage(RoleUser, Text("c"))),
			),
			wantErr:  true,
			wantPath: "root/1/1",
		},
		{
			name:     "leaf with children",
			root:     Region(NewReasoning("think").WithChildren(Texts("extra"))),
			wantErr:  true,
			wantPath: "root/0",
		},
		{
			name:    "nil root",
			root:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.root)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var serr *StructuralError
			if !errors.As(err, &serr) {
				t.Fatalf("expected *StructuralError, got %T", err)
			}
			if tt.wantPath != "" && serr.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", serr.Path, tt.wantPath)
			}
		})
	}
}

func TestValidate_ReportsID(t *testing.T) {
	root := NewMessage(RoleUser, NewMessage(RoleUser).With(WithID("dup")))
	err := Validate(root)
	if err == nil || !strings.Contains(err.Error(), `"dup"`) {
		t.Errorf("error should name the offending id, got %v", err)
	}
}

func TestConstructors(t *testing.T) {
	if _, err := NewToolCall("", "getWeather", nil); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("missing call id: err = %v, want ErrInvalidNode", err)
	}
	if _, err := NewToolCall("w1", "", nil); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("missing name: err = %v, want ErrInvalidNode", err)
	}
	if _, err := NewToolResult("w1", "getWeather", ToolOutput{Type: "xml"}); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("bad output type: err = %v, want ErrInvalidNode", err)
	}

	res, err := NewToolResult("w1", "getWeather", ToolOutput{Value: "sunny"})
	if err != nil {
		t.Fatalf("NewToolResult() error = %v", err)
	}
	if got := res.Kind().(ToolResult).Output.Type; got != "text" {
		t.Errorf("default output type = %q, want text", got)
	}
}

func TestWith_CopyOnWrite(t *testing.T) {
	base := Region(Texts("a", "b")...)
	omit := func(context.Context, *Node, FitContext) (*Node, error) { return nil, nil }

	derived := base.With(WithPriority(3), WithID("x"), WithStrategy(omit))
	if base.Priority() != 0 || base.ID() != "" || base.Strategy() != nil {
		t.Error("With must not modify the receiver")
	}
	if derived.Priority() != 3 || derived.ID() != "x" || derived.Strategy() == nil {
		t.Errorf("derived = %v, options not applied", derived)
	}

	shorter := base.WithChildren(Texts("a"))
	if base.Len() != 2 || shorter.Len() != 1 {
		t.Errorf("WithChildren: base.Len = %d, shorter.Len = %d", base.Len(), shorter.Len())
	}

	children := base.Children()
	children[0] = Text("mutated")
	if base.Child(0) != Text("a") {
		t.Error("Children must return a copy")
	}
}

func TestEqual(t *testing.T) {
	omit := func(context.Context, *Node, FitContext) (*Node, error) { return nil, nil }
	call := MustToolCall("w1", "getWeather", map[string]any{"city": "Paris"})

	a := Region(NewMessage(RoleUser, Text("hi"), call)).With(WithPriority(1), WithStrategy(omit))
	b := Region(NewMessage(RoleUser, Text("hi"), MustToolCall("w1", "getWeather", map[string]any{"city": "Paris"}))).
		With(WithPriority(1), WithStrategy(omit))

	if !Equal(a, b) {
		t.Error("structurally identical trees should be equal")
	}
	if Equal(a, b.With(WithPriority(2))) {
		t.Error("different priority should not be equal")
	}
	if Equal(a, b.With(WithStrategy(nil))) {
		t.Error("strategy presence should be compared")
	}
	if Equal(a, a.WithChildren(Texts("hi"))) {
		t.Error("different children should not be equal")
	}
	if Equal(a, nil) {
		t.Error("nil should not equal a node")
	}
}

func TestLastAndFirst(t *testing.T) {
	children := Texts("1", "2", "3", "4", "5")

	last := Last(2, children...)
	if len(last) != 2 || last[0] != Text("4") || last[1] != Text("5") {
		t.Errorf("Last(2) = %v, want [4 5]", last)
	}
	if got := Last(10, children...); len(got) != 5 {
		t.Errorf("Last(10) len = %d, want 5", len(got))
	}
	if got := Last(0, children...); len(got) != 0 {
		t.Errorf("Last(0) len = %d, want 0", len(got))
	}

	first := First(2, children...)
	if len(first) != 2 || first[0] != Text("1") || first[1] != Text("2") {
		t.Errorf("First(2) = %v, want [1 2]", first)
	}

	// Last is static: priority on the region plays no part.
	n := Region(Last(2, children...)...).With(WithPriority(100))
	if n.Len() != 2 {
		t.Errorf("region built from Last(2) has %d children", n.Len())
	}
}

func TestWalk(t *testing.T) {
	root := Region(Text("a"), Region(NewMessage(RoleUser, Text("b"))), NewReasoning("r"))

	var kinds []string
	Walk(root, func(n *Node) bool {
		kinds = append(kinds, KindName(n.Kind()))
		return true
	})
	want := []string{"region", "region", "message", "reasoning"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("Walk order = %v, want %v", kinds, want)
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool} {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}
	if _, err := ParseRole("narrator"); err == nil {
		t.Error("expected error for unknown role")
	}
}
