package store

import (
	"errors"
	"sort"
	"sync"
)

// MemStore implements Store in memory. Used in tests and when no
// archive path is configured but archiving is requested explicitly.
type MemStore struct {
	mu        sync.Mutex
	reports   map[int64]*ArchivedReport
	bySession map[string]int64
	next      int64
}

// NewMemStore creates an empty in-memory archive.
func NewMemStore() *MemStore {
	return &MemStore{
		reports:   make(map[int64]*ArchivedReport),
		bySession: make(map[string]int64),
	}
}

func (s *MemStore) SaveReport(rep *ArchivedReport) (int64, error) {
	if rep == nil {
		return 0, errors.New("report is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	cp := *rep
	cp.ID = s.next
	if cp.CreatedAt == "" {
		cp.CreatedAt = nowUTC()
	}
	s.reports[cp.ID] = &cp
	s.bySession[cp.SessionID] = cp.ID
	return cp.ID, nil
}

func (s *MemStore) GetReport(id int64) (*ArchivedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	cp := *rep
	return &cp, nil
}

func (s *MemStore) GetReportBySession(sessionID string) (*ArchivedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s.reports[id]
	return &cp, nil
}

func (s *MemStore) ListReports() ([]*ArchivedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ArchivedReport, 0, len(s.reports))
	for _, rep := range s.reports {
		cp := *rep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Close() error { return nil }
