package grpcapi

import (
	"testing"
	"time"

	"github.com/Leganyst/association-portal/internal/service"
)

func TestPlanStore_TTL(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	p := newPlanStore(PlanTTL)
	p.now = func() time.Time { return now }

	id := p.put(&service.Report{GeneratedAt: now})
	if _, ok := p.get(id); !ok {
		t.Fatalf("fresh plan not found")
	}

	now = now.Add(PlanTTL)
	if _, ok := p.get(id); !ok {
		t.Fatalf("plan must live exactly PlanTTL")
	}

	now = now.Add(time.Second)
	if _, ok := p.take(id); ok {
		t.Fatalf("expired plan returned")
	}
	if p.size() != 0 {
		t.Fatalf("expired plan not pruned")
	}
}

func TestPlanStore_DropGroup(t *testing.T) {
	p := newPlanStore(PlanTTL)
	orig := &service.Report{
		GeneratedAt: time.Now(),
		Groups:      []service.GroupPlan{{Name: "chess"}, {Name: "robotique"}},
	}
	id := p.put(orig)

	p.dropGroup(id, "chess")
	rest, ok := p.get(id)
	if !ok || len(rest.Groups) != 1 || rest.Groups[0].Name != "robotique" {
		t.Fatalf("rest = %+v", rest)
	}
	if len(orig.Groups) != 2 {
		t.Fatalf("original report mutated: %+v", orig.Groups)
	}

	p.dropGroup(id, "robotique")
	if _, ok := p.get(id); ok {
		t.Fatalf("empty plan must be removed")
	}
}
