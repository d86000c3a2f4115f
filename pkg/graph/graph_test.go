package graph

import (
	"errors"
	"testing"
)

func TestAddEdgeRejectsInvalid(t *testing.T) {
	g := New()
	a := g.AddNode(1, 0, 0)
	if again := g.AddNode(1, 9, 9); again != a {
		t.Fatalf("AddNode twice gave %d then %d", a, again)
	}

	if _, err := g.AddEdge(a, a, 10, false); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("self-loop: got %v, want ErrInvalidGraph", err)
	}
	if _, err := g.AddEdge(a, 7, 10, false); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("dangling endpoint: got %v, want ErrInvalidGraph", err)
	}
}

func TestDegreesAndOddNodes(t *testing.T) {
	// Path 0-1-2 plus a parallel edge 1-2.
	g := New()
	for id := NodeID(0); id < 3; id++ {
		g.AddNode(id, 0, 0)
	}
	g.AddEdge(0, 1, 10, false)
	g.AddEdge(1, 2, 20, false)
	g.AddEdge(1, 2, 30, true)

	wantDeg := []int{1, 3, 2}
	for u, want := range wantDeg {
		if got := g.Degree(uint32(u)); got != want {
			t.Errorf("Degree(%d) = %d, want %d", u, got, want)
		}
	}

	odd := g.OddNodes()
	if len(odd) != 2 || odd[0] != 0 || odd[1] != 1 {
		t.Errorf("OddNodes = %v, want [0 1]", odd)
	}

	nb := g.Neighbors(1)
	if len(nb) != 3 || nb[0] != 0 || nb[1] != 2 || nb[2] != 2 {
		t.Errorf("Neighbors(1) = %v, want [0 2 2]", nb)
	}

	if g.TotalWeight() != 60 {
		t.Errorf("TotalWeight = %d, want 60", g.TotalWeight())
	}
	if g.SyntheticWeight() != 30 {
		t.Errorf("SyntheticWeight = %d, want 30", g.SyntheticWeight())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	a := g.AddNode(1, 0, 0)
	b := g.AddNode(2, 0, 0)
	g.AddEdge(a, b, 10, false)

	c := g.Clone()
	c.AddEdge(a, b, 10, true)
	c.AddNode(3, 0, 0)

	if g.NumEdges() != 1 || g.Degree(a) != 1 || g.NumNodes != 2 {
		t.Error("mutating the clone changed the original")
	}
	if _, ok := g.Lookup(3); ok {
		t.Error("clone shares the id index")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("clone Validate: %v", err)
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	g := New()
	a := g.AddNode(1, 0, 0)
	b := g.AddNode(2, 0, 0)
	g.AddEdge(a, b, 10, false)

	g.Edges = append(g.Edges, Edge{U: a, V: 5, Weight: 1})
	if err := g.Validate(); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("got %v, want ErrInvalidGraph", err)
	}
}
