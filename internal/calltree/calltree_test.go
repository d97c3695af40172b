package calltree

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/getsentry/callprof/internal/testutil"
)

func TestShortSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		short     string
		ok        bool
	}{
		{
			name:      "template signatures are never shortened",
			signature: "foobar.ftl:123#foo.getBar('123').baz",
		},
		{
			name:      "method descriptor",
			signature: "String com.example.web.TemplateTest$TemplateModel.getFoo()",
			short:     "TemplateModel.getFoo()",
			ok:        true,
		},
		{
			name:      "free form root",
			signature: "testFreemarkerProfiling",
			short:     "testFreemarkerProfiling",
			ok:        true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			short, ok := NewRoot(test.signature).ShortSignature()
			if ok != test.ok {
				t.Fatalf("expected ok to be %v, got %v", test.ok, ok)
			}
			if diff := testutil.Diff(short, test.short); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestAddChild(t *testing.T) {
	root := NewRootAt("root", 0)
	a := root.AddChild("a", 1)
	b := a.AddChild("b", 2)
	b.Close(3)
	a.Close(4)
	c := root.AddChild("c", 5)
	c.Close(6)
	root.Close(10)

	if a.Parent() != root || b.Parent() != a || root.Parent() != nil {
		t.Fatal("unexpected parent links")
	}

	var order []string
	root.Walk(func(n *Node, _ int) bool {
		order = append(order, n.Signature())
		return true
	})
	if diff := testutil.Diff(order, []string{"root", "a", "b", "c"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	if root.Count() != 4 {
		t.Fatalf("expected 4 nodes, got %d", root.Count())
	}
	if root.Depth() != 3 {
		t.Fatalf("expected a depth of 3, got %d", root.Depth())
	}
	if root.SelfTimeNS() != 6 {
		t.Fatalf("expected a self time of 6ns, got %d", root.SelfTimeNS())
	}
}

func TestClosedNodeIsFinal(t *testing.T) {
	root := NewRootAt("root", 10)
	root.Close(15)
	root.Close(20)

	if root.AddChild("late", 16) != nil {
		t.Fatal("expected a closed node to reject children")
	}
	if len(root.Children()) != 0 {
		t.Fatalf("expected no children, got %d", len(root.Children()))
	}
	if root.DurationNS != 5 {
		t.Fatalf("expected the first close to win, got a duration of %d", root.DurationNS)
	}
}

func TestWalkStops(t *testing.T) {
	root := NewRoot("root")
	root.AddChild("a", 0)
	root.AddChild("b", 0)

	var visited []string
	root.Walk(func(n *Node, _ int) bool {
		visited = append(visited, n.Signature())
		return n.Signature() != "a"
	})
	if diff := testutil.Diff(visited, []string{"root", "a"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestRemoveCallsFasterThan(t *testing.T) {
	root := NewRootAt("root", 0)
	fast := root.AddChild("fast", 0)
	fast.AddChild("inside fast", 0).Close(1)
	fast.Close(2)
	slow := root.AddChild("slow", 2)
	slow.AddChild("fast inside slow", 3).Close(4)
	slow.AddChild("slow inside slow", 4).Close(20)
	slow.Close(30)
	open := root.AddChild("open", 30)

	root.RemoveCallsFasterThan(10)

	var remaining []string
	root.Walk(func(n *Node, _ int) bool {
		remaining = append(remaining, n.Signature())
		return true
	})
	if diff := testutil.Diff(remaining, []string{"root", "slow", "slow inside slow", "open"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if fast.Parent() != nil {
		t.Fatal("expected pruned node to be detached")
	}
	if open.Parent() != root {
		t.Fatal("expected open node to be kept")
	}
}

func TestRemoveChild(t *testing.T) {
	root := NewRoot("root")
	a := root.AddChild("a", 0)
	other := NewRoot("other")

	if root.RemoveChild(other) {
		t.Fatal("expected unknown child not to be removed")
	}
	if !root.RemoveChild(a) {
		t.Fatal("expected child to be removed")
	}
	if len(root.Children()) != 0 || a.Parent() != nil {
		t.Fatal("expected child to be detached")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	root := NewRootAt("testFreemarkerProfiling", 0)
	ftl := root.AddChild("test.ftl:1#templateModel.foo", 10)
	ftl.AddChild("String com.example.TemplateModel.getFoo()", 20).Close(30)
	ftl.Close(40)
	root.Close(50)

	b, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("couldn't marshal call tree: %v", err)
	}
	if !strings.Contains(string(b), `"short_signature":"TemplateModel.getFoo()"`) {
		t.Fatalf("expected short signature in %s", b)
	}

	var decoded Node
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("couldn't unmarshal call tree: %v", err)
	}
	if decoded.Signature() != root.Signature() || decoded.DurationNS != 50 {
		t.Fatalf("unexpected root: %s %d", decoded.Signature(), decoded.DurationNS)
	}
	child := decoded.Children()[0]
	if child.Parent() != &decoded {
		t.Fatal("expected parent link to be restored")
	}
	if child.Children()[0].Signature() != "String com.example.TemplateModel.getFoo()" {
		t.Fatalf("unexpected grandchild: %s", child.Children()[0].Signature())
	}
}

func TestString(t *testing.T) {
	root := NewRootAt("testFreemarkerProfiling", 0)
	ftl := root.AddChild("test.ftl:1#templateModel.foo", 0)
	ftl.AddChild("String com.example.TemplateModel.getFoo()", 0).Close(500000)
	ftl.Close(1000000)
	root.Close(2000000)

	lines := strings.Split(strings.TrimSpace(root.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), root.String())
	}
	for i, want := range []string{
		"      1.00    50%            2.00   100%      testFreemarkerProfiling",
		"      0.50    25%            1.00    50%      |-- test.ftl:1#templateModel.foo",
		"      0.50    25%            0.50    25%      |   |-- TemplateModel.getFoo()",
	} {
		if diff := testutil.Diff(lines[i+3], want); diff != "" {
			t.Fatalf("Result mismatch: got - want +\n%s", diff)
		}
	}
}
