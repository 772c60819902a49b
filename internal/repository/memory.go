package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/domain"
)

// MemoryStore is an in-memory UserStore used when no Postgres DSN is
// configured and by tests. It mirrors the Postgres implementation's
// semantics, including soft-delete filtering and rotation stamping.
type MemoryStore struct {
	mu     sync.RWMutex
	hasher *auth.PasswordHasher
	users  map[string]*domain.User
	now    func() time.Time
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore(hasher *auth.PasswordHasher) *MemoryStore {
	return &MemoryStore{
		hasher: hasher,
		users:  make(map[string]*domain.User),
		now:    time.Now,
	}
}

// Seed inserts a prebuilt user, bypassing hashing. Intended for fixtures.
func (s *MemoryStore) Seed(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	s.users[clone.ID] = &clone
}

func (s *MemoryStore) Create(_ context.Context, in NewUser) (*domain.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, domain.ErrDuplicateEmail
		}
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user

	clone := *user
	return &clone, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok || !user.Active {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.GetByEmailWithPassword(ctx, email)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *MemoryStore) GetByEmailWithPassword(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Active && strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *MemoryStore) GetByResetToken(_ context.Context, digest string, now time.Time) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if !user.Active || user.PasswordResetTokenHash == nil || user.PasswordResetExpiresAt == nil {
			continue
		}
		if *user.PasswordResetTokenHash == digest && now.Before(*user.PasswordResetExpiresAt) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *MemoryStore) SavePassword(_ context.Context, id, password string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || !user.Active {
		return nil, domain.ErrUserNotFound
	}

	changed := s.now().Add(-time.Second)
	user.PasswordHash = hash
	user.PasswordChangedAt = &changed
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpiresAt = nil
	user.UpdatedAt = s.now()

	clone := *user
	return &clone, nil
}

func (s *MemoryStore) SetResetToken(_ context.Context, id, digest string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || !user.Active {
		return domain.ErrUserNotFound
	}
	user.PasswordResetTokenHash = &digest
	user.PasswordResetExpiresAt = &expiresAt
	user.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ClearResetToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil
	}
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpiresAt = nil
	user.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, name, email *string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || !user.Active {
		return nil, domain.ErrUserNotFound
	}
	if email != nil {
		for _, other := range s.users {
			if other.ID != id && strings.EqualFold(other.Email, *email) {
				return nil, domain.ErrDuplicateEmail
			}
		}
		user.Email = *email
	}
	if name != nil {
		user.Name = *name
	}
	user.UpdatedAt = s.now()

	clone := *user
	return &clone, nil
}

func (s *MemoryStore) UpdateFields(_ context.Context, id string, update AdminUserUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.Active != nil {
		user.Active = *update.Active
	}
	user.UpdatedAt = s.now()

	clone := *user
	return &clone, nil
}

func (s *MemoryStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || !user.Active {
		return domain.ErrUserNotFound
	}
	user.Active = false
	user.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []domain.User
	for _, user := range s.users {
		if user.Active {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}
