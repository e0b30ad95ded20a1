package topology

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

const validFixture = `
seed: 7
nodes:
  - id: 1
    kind: Client
    config: {arrival_rate: 10, timeout: 1000}
  - id: 2
    kind: Server
    config: {service_time: 10, concurrency: 4, backlog_limit: 10}
edges:
  - from: 1
    to: 2
    forward: {latency_us: 500}
`

func TestLoad_ParsesValidDocument(t *testing.T) {
	path := writeFixture(t, validFixture)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Seed != 7 || len(doc.Nodes) != 2 || len(doc.Edges) != 1 {
		t.Fatalf("unexpected document shape: %+v", doc)
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeFixture(t, validFixture+"\nbogus_field: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected strict decoding to reject an unrecognized top-level key")
	}
}

func TestValidate_RejectsDuplicateIds(t *testing.T) {
	doc := &Document{Nodes: []NodeSpec{
		{ID: 1, Kind: "Client"},
		{ID: 1, Kind: "Server"},
	}}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected duplicate node id to be rejected")
	}
}

func TestValidate_RejectsUnknownKind(t *testing.T) {
	doc := &Document{Nodes: []NodeSpec{{ID: 1, Kind: "Gateway"}}}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected an unrecognized kind to be rejected")
	}
}

func TestValidate_RejectsDanglingEdge(t *testing.T) {
	doc := &Document{
		Nodes: []NodeSpec{{ID: 1, Kind: "Client"}},
		Edges: []EdgeSpec{{From: 1, To: 99}},
	}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected an edge referencing a missing node to be rejected")
	}
}

func TestBuild_WiresComponentsAndSchedulesInitialTick(t *testing.T) {
	path := writeFixture(t, validFixture)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := doc.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Components()) != 2 {
		t.Fatalf("expected 2 components wired, got %d", len(s.Components()))
	}
	if !s.Step() {
		t.Fatal("expected the scheduled initial GenerateNext to be steppable")
	}
}

func TestSortedNodeIDs_IsAscending(t *testing.T) {
	doc := &Document{Nodes: []NodeSpec{{ID: 3}, {ID: 1}, {ID: 2}}}
	got := doc.SortedNodeIDs()
	want := []uint32{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedNodeIDs = %v, want %v", got, want)
		}
	}
}
