package router

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/welllog/welllog-api/internal/model"
	"github.com/welllog/welllog-api/internal/repository"
)

type memUsers struct {
	mu   sync.Mutex
	rows map[uint64]*model.User
	next uint64
}

func newMemUsers() *memUsers { return &memUsers{rows: map[uint64]*model.User{}} }

func (s *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *memUsers) FindByUsername(_ context.Context, name string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Username == name })
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *memUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == id })
}

func (s *memUsers) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.rows[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (s *memUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Username == u.Username || r.Email == u.Email {
			return model.ErrDuplicate
		}
	}
	s.next++
	u.ID = s.next
	cp := *u
	s.rows[u.ID] = &cp
	return nil
}

func (s *memUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memUsers) List(_ context.Context, offset, limit int) ([]*model.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*model.User
	for _, u := range s.rows {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return window(all, offset, limit), len(all), nil
}

func (s *memUsers) UpdateAccess(_ context.Context, id uint64, role *model.Role, status *model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return model.ErrNotFound
	}
	if role != nil {
		u.Role = *role
	}
	if status != nil {
		u.Status = *status
	}
	return nil
}

type memProjects struct {
	mu   sync.Mutex
	rows map[uint64]*model.Project
	next uint64
}

func newMemProjects() *memProjects { return &memProjects{rows: map[uint64]*model.Project{}} }

func (s *memProjects) Create(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	p.ID = s.next
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *memProjects) GetByID(_ context.Context, id uint64) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProjects) List(_ context.Context, f repository.ProjectFilter, offset, limit int) ([]*model.Project, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Project
	for _, p := range s.rows {
		if f.OwnerID != 0 && p.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return window(out, offset, limit), len(out), nil
}

func (s *memProjects) Update(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.ID]; !ok {
		return model.ErrNotFound
	}
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *memProjects) UpdateStatus(_ context.Context, id uint64, status model.ProjectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return model.ErrNotFound
	}
	p.Status = status
	return nil
}

func (s *memProjects) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type memLogs struct {
	rows map[uint64]*model.WellLog
}

func (s *memLogs) Create(_ context.Context, l *model.WellLog) error {
	l.ID = uint64(len(s.rows) + 1)
	s.rows[l.ID] = l
	return nil
}

func (s *memLogs) GetByID(_ context.Context, id uint64) (*model.WellLog, error) {
	l, ok := s.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *memLogs) ListByProject(_ context.Context, projectID uint64, offset, limit int) ([]*model.WellLog, int, error) {
	var out []*model.WellLog
	for _, l := range s.rows {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	return window(out, offset, limit), len(out), nil
}

func (s *memLogs) Delete(_ context.Context, id uint64) error {
	if _, ok := s.rows[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type memPredictions struct {
	rows map[uint64]*model.Prediction
	logs *memLogs
}

func (s *memPredictions) Create(_ context.Context, p *model.Prediction) error {
	l, ok := s.logs.rows[p.LogID]
	if !ok {
		return model.ErrNotFound
	}
	if p.Status == "" {
		p.Status = model.PredictionSuccess
	}
	p.ID = uint64(len(s.rows) + 1)
	p.OwnerID = l.OwnerID
	s.rows[p.ID] = p
	return nil
}

func (s *memPredictions) GetByID(_ context.Context, id uint64) (*model.Prediction, error) {
	p, ok := s.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p, nil
}

func (s *memPredictions) ListByLog(_ context.Context, logID uint64, offset, limit int) ([]*model.Prediction, error) {
	var out []*model.Prediction
	for _, p := range s.rows {
		if p.LogID == logID {
			out = append(out, p)
		}
	}
	return window(out, offset, limit), nil
}

func (s *memPredictions) Delete(_ context.Context, id uint64) error {
	if _, ok := s.rows[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type memModels struct {
	rows []*model.AIModel
}

func (s *memModels) List(_ context.Context, activeOnly bool) ([]*model.AIModel, error) {
	var out []*model.AIModel
	for _, m := range s.rows {
		if !activeOnly || m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memModels) GetByID(_ context.Context, id uint64) (*model.AIModel, error) {
	for _, m := range s.rows {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *memModels) Create(_ context.Context, m *model.AIModel) error {
	m.ID = uint64(len(s.rows) + 1)
	s.rows = append(s.rows, m)
	return nil
}

func (s *memModels) Delete(_ context.Context, id uint64) error {
	for i, m := range s.rows {
		if m.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

type memAudit struct{}

func (memAudit) List(context.Context, uint64, int, int) ([]*model.AuditEntry, error) {
	return nil, nil
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
