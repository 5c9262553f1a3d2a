package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
	"github.com/AvivSela/product-watch-il/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }
func statusPtr(v model.FileStatus) *model.FileStatus { return &v }

// --- mockStoreRepo ---

type mockStoreRepo struct {
	createFn             func(ctx context.Context, s *model.Store) error
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*model.Store, error)
	getByNaturalKeyFn    func(ctx context.Context, chainID string, storeNumber int) (*model.Store, error)
	existsByNaturalKeyFn func(ctx context.Context, chainID string, storeNumber int) (bool, error)
	updateFn             func(ctx context.Context, s *model.Store) error
	deleteFn             func(ctx context.Context, id uuid.UUID) (bool, error)
	listFn               func(ctx context.Context, filters repository.StoreListFilters, limit, offset int) ([]*model.Store, error)
	countFn              func(ctx context.Context, filters repository.StoreListFilters) (int, error)
}

func (m *mockStoreRepo) Create(ctx context.Context, s *model.Store) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	s.ID = uuid.New()
	return nil
}

func (m *mockStoreRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockStoreRepo) GetByNaturalKey(ctx context.Context, chainID string, storeNumber int) (*model.Store, error) {
	if m.getByNaturalKeyFn != nil {
		return m.getByNaturalKeyFn(ctx, chainID, storeNumber)
	}
	return nil, repository.ErrNotFound
}

func (m *mockStoreRepo) ExistsByNaturalKey(ctx context.Context, chainID string, storeNumber int) (bool, error) {
	if m.existsByNaturalKeyFn != nil {
		return m.existsByNaturalKeyFn(ctx, chainID, storeNumber)
	}
	return false, nil
}

func (m *mockStoreRepo) Update(ctx context.Context, s *model.Store) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, s)
	}
	s.Version++
	return nil
}

func (m *mockStoreRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return false, nil
}

func (m *mockStoreRepo) List(ctx context.Context, filters repository.StoreListFilters, limit, offset int) ([]*model.Store, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filters, limit, offset)
	}
	return nil, nil
}

func (m *mockStoreRepo) Count(ctx context.Context, filters repository.StoreListFilters) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filters)
	}
	return 0, nil
}

// --- mockRetailFileRepo ---

type mockRetailFileRepo struct {
	createFn           func(ctx context.Context, f *model.RetailFile) error
	getByIDFn          func(ctx context.Context, id uuid.UUID) (*model.RetailFile, error)
	updateFn           func(ctx context.Context, f *model.RetailFile) error
	updateStatusFn     func(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error)
	deleteFn           func(ctx context.Context, id uuid.UUID) (bool, error)
	existsByChecksumFn func(ctx context.Context, checksum string) (bool, error)
	listFn             func(ctx context.Context, filters repository.RetailFileListFilters, limit, offset int) ([]*model.RetailFile, error)
	countFn            func(ctx context.Context, filters repository.RetailFileListFilters) (int, error)
}

func (m *mockRetailFileRepo) Create(ctx context.Context, f *model.RetailFile) error {
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	f.ID = uuid.New()
	return nil
}

func (m *mockRetailFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.RetailFile, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockRetailFileRepo) Update(ctx context.Context, f *model.RetailFile) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, f)
	}
	return nil
}

func (m *mockRetailFileRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil, repository.ErrNotFound
}

func (m *mockRetailFileRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return false, nil
}

func (m *mockRetailFileRepo) ExistsByChecksum(ctx context.Context, checksum string) (bool, error) {
	if m.existsByChecksumFn != nil {
		return m.existsByChecksumFn(ctx, checksum)
	}
	return false, nil
}

func (m *mockRetailFileRepo) List(ctx context.Context, filters repository.RetailFileListFilters, limit, offset int) ([]*model.RetailFile, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filters, limit, offset)
	}
	return nil, nil
}

func (m *mockRetailFileRepo) Count(ctx context.Context, filters repository.RetailFileListFilters) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filters)
	}
	return 0, nil
}

// --- mockResolver ---

type mockResolver struct {
	fn func(ctx context.Context, chainID string, storeNumber int) (uuid.UUID, error)
}

func (m *mockResolver) GetOrCreateStoreID(ctx context.Context, chainID string, storeNumber int) (uuid.UUID, error) {
	return m.fn(ctx, chainID, storeNumber)
}

// --- fakeMetrics ---

// fakeMetrics считает вызовы Metrics.
type fakeMetrics struct {
	mu         sync.Mutex
	created    map[string]int
	updated    map[string]int
	deleted    map[string]int
	files      int
	duplicates int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		created: map[string]int{},
		updated: map[string]int{},
		deleted: map[string]int{},
	}
}

func (f *fakeMetrics) StoreCreated(chainID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created[chainID]++
}

func (f *fakeMetrics) StoreUpdated(chainID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[chainID]++
}

func (f *fakeMetrics) StoreDeleted(chainID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[chainID]++
}

func (f *fakeMetrics) RetailFileCreated() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files++
}

func (f *fakeMetrics) DuplicateFileDetected() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duplicates++
}

// NopMetrics — Metrics без побочных эффектов.
type NopMetrics struct{}

func (NopMetrics) StoreCreated(string)    {}
func (NopMetrics) StoreUpdated(string)    {}
func (NopMetrics) StoreDeleted(string)    {}
func (NopMetrics) RetailFileCreated()     {}
func (NopMetrics) DuplicateFileDetected() {}
