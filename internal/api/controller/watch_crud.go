package controller

import (
	"github.com/bassista/posdit/internal/domain"
	"github.com/bassista/posdit/internal/registry"
)

// WatchStore is the registry API used by the watch endpoints.
type WatchStore interface {
	Snapshot() (string, []domain.WatchSpec)
	Replace(destination string, specs []domain.WatchSpec) (registry.Diff, error)
	Add(spec domain.WatchSpec) (registry.Diff, error)
	Remove(key string) (registry.Diff, error)
	SetDestination(destination string)
	Validate(spec domain.WatchSpec) error
}

// WatchCrudService implements CrudService for single watch specs.
type WatchCrudService struct {
	Store WatchStore
}

func (s *WatchCrudService) All() ([]domain.WatchSpec, error) {
	_, specs := s.Store.Snapshot()
	return specs, nil
}

func (s *WatchCrudService) Add(item domain.WatchSpec) ([]domain.WatchSpec, error) {
	diff, err := s.Store.Add(item)
	if err != nil {
		return nil, err
	}
	logDiff(diff)
	return s.All()
}

func (s *WatchCrudService) Remove(key string) ([]domain.WatchSpec, error) {
	diff, err := s.Store.Remove(key)
	if err != nil {
		return nil, err
	}
	logDiff(diff)
	return s.All()
}

// WatchCrudValidator implements CrudValidator with the registry's rules.
type WatchCrudValidator struct {
	Store WatchStore
}

func (v *WatchCrudValidator) Validate(item domain.WatchSpec) error {
	return v.Store.Validate(item)
}
