package grpcapi

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/association-portal/internal/service"
)

// PlanTTL: сколько живёт показанный администратору план сверки.
const PlanTTL = 15 * time.Minute

// planStore хранит выданные планы сверки под одноразовыми id.
// Просроченные планы вычищаются при каждом обращении.
type planStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	plans map[string]*service.Report
}

func newPlanStore(ttl time.Duration) *planStore {
	return &planStore{
		ttl:   ttl,
		now:   time.Now,
		plans: map[string]*service.Report{},
	}
}

// pruneLocked удаляет просроченные планы. Вызывается под mu.
func (p *planStore) pruneLocked() {
	deadline := p.now().Add(-p.ttl)
	for id, r := range p.plans {
		if r.GeneratedAt.Before(deadline) {
			delete(p.plans, id)
		}
	}
}

func (p *planStore) put(r *service.Report) string {
	id := uuid.NewString()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	p.plans[id] = r
	return id
}

// get возвращает план, не расходуя его.
func (p *planStore) get(id string) (*service.Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	r, ok := p.plans[id]
	return r, ok
}

// take возвращает план и удаляет его.
func (p *planStore) take(id string) (*service.Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	r, ok := p.plans[id]
	if ok {
		delete(p.plans, id)
	}
	return r, ok
}

// dropGroup убирает слитую группу из плана; пустой план удаляется.
// Report не меняется на месте: его может читать параллельный Apply.
func (p *planStore) dropGroup(id, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.plans[id]
	if !ok {
		return
	}
	rest := make([]service.GroupPlan, 0, len(r.Groups))
	for _, g := range r.Groups {
		if g.Name != name {
			rest = append(rest, g)
		}
	}
	if len(rest) == 0 {
		delete(p.plans, id)
		return
	}
	p.plans[id] = &service.Report{
		GeneratedAt:    r.GeneratedAt,
		Groups:         rest,
		NearDuplicates: r.NearDuplicates,
	}
}

func (p *planStore) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plans)
}
