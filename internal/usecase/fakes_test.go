package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
)

// memoryProviderRepository keeps providers and leads in maps and counts calls.
// failCreateOnCall makes the n-th CreateWithLeads call fail (1-based).
type memoryProviderRepository struct {
	mu        sync.Mutex
	byNPI     map[string]*entity.Provider
	byID      map[string]*entity.Provider
	leads     map[string][]*entity.Lead
	calls     map[string]int
	chunkLogs []int

	failCreateOnCall int
}

func newMemoryRepo() *memoryProviderRepository {
	return &memoryProviderRepository{
		byNPI: map[string]*entity.Provider{},
		byID:  map[string]*entity.Provider{},
		leads: map[string][]*entity.Lead{},
		calls: map[string]int{},
	}
}

func (m *memoryProviderRepository) seed(npi string, withLead bool) *entity.Provider {
	p := &entity.Provider{ID: "id-" + npi, NPI: npi, LastName: "Seeded"}
	m.byNPI[npi] = p
	m.byID[p.ID] = p
	if withLead {
		m.leads[p.ID] = append(m.leads[p.ID], entity.NewLead(p.ID, p.CreatedAt))
	}
	return p
}

func (m *memoryProviderRepository) leadCount() int {
	n := 0
	for _, l := range m.leads {
		n += len(l)
	}
	return n
}

func (m *memoryProviderRepository) FindExistingByNPI(_ context.Context, npis []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["FindExistingByNPI"]++
	out := map[string]string{}
	for _, npi := range npis {
		if p, ok := m.byNPI[npi]; ok {
			out[npi] = p.ID
		}
	}
	return out, nil
}

func (m *memoryProviderRepository) CreateWithLeads(_ context.Context, items []entity.ProviderLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["CreateWithLeads"]++
	if m.failCreateOnCall == m.calls["CreateWithLeads"] {
		return errors.New("connection reset")
	}
	m.chunkLogs = append(m.chunkLogs, len(items))
	for _, item := range items {
		if _, dup := m.byNPI[item.Provider.NPI]; dup {
			return entity.ErrDuplicateProvider
		}
	}
	for _, item := range items {
		copied := *item.Provider
		m.byNPI[copied.NPI] = &copied
		m.byID[copied.ID] = &copied
		if item.Lead != nil {
			m.leads[copied.ID] = append(m.leads[copied.ID], item.Lead)
		}
	}
	return nil
}

func (m *memoryProviderRepository) UpdateBatch(_ context.Context, providers []*entity.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["UpdateBatch"]++
	m.chunkLogs = append(m.chunkLogs, len(providers))
	for _, p := range providers {
		copied := *p
		m.byNPI[p.NPI] = &copied
		m.byID[p.ID] = &copied
	}
	return nil
}

func (m *memoryProviderRepository) FindWithoutLeads(_ context.Context, ids []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["FindWithoutLeads"]++
	var out []string
	for _, id := range ids {
		if _, ok := m.byID[id]; ok && len(m.leads[id]) == 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memoryProviderRepository) CreateLeads(_ context.Context, leads []*entity.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["CreateLeads"]++
	for _, l := range leads {
		m.leads[l.ProviderID] = append(m.leads[l.ProviderID], l)
	}
	return nil
}

func (m *memoryProviderRepository) FilterExistingIDs(_ context.Context, ids []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, id := range ids {
		if _, ok := m.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memoryProviderRepository) ListIDsAfter(_ context.Context, after string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListIDsAfter"]++
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) FetchAll(ctx context.Context, req nppes.FetchRequest) (*nppes.FetchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nppes.FetchResult), args.Error(1)
}

type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) Load(ctx context.Context, key string) (*entity.SyncProgress, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SyncProgress), args.Error(1)
}

func (m *MockProgressRepository) Save(ctx context.Context, p *entity.SyncProgress) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}
