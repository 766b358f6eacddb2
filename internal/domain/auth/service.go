package auth

import "context"

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) HasPermission(ctx context.Context, role, permission string) (bool, error) {
	return s.Store.HasPermission(ctx, role, permission)
}
