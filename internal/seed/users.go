package seed

import (
	"context"

	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/security"
)

// CreateUser creates one account. An existing username is a conflict error.
func CreateUser(ctx context.Context, store UserStore, spec UserSpec) (*datastore.User, error) {
	if spec.Password == "" {
		return nil, errors.Newf("password is required").
			Component("seed").
			Category(errors.CategoryValidation).
			Build()
	}

	hash, err := security.HashPassword(spec.Password)
	if err != nil {
		return nil, err
	}

	user := &datastore.User{
		Username:     spec.Username,
		Email:        spec.Email,
		PasswordHash: hash,
		IsSuperuser:  spec.Superuser,
		IsActive:     true,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Users creates each account that does not exist yet.
func (s *Seeder) Users(ctx context.Context, store UserStore, users []UserSpec) Report {
	var report Report

	s.printf("Creating %d users...", len(users))
	s.rule()

	for _, spec := range users {
		if existing, err := store.GetUserByUsername(ctx, spec.Username); err == nil && existing != nil {
			s.printf("⚠️  User '%s' already exists", spec.Username)
			report.Existing++
			continue
		}

		if _, err := CreateUser(ctx, store, spec); err != nil {
			if errors.IsConflict(err) {
				s.printf("⚠️  User '%s' already exists", spec.Username)
				report.Existing++
				continue
			}
			s.printf("❌ Error creating %s: %v", spec.Username, err)
			s.log.Warn("seed user failed", logger.String("username", spec.Username), logger.Error(err))
			report.Failed++
			continue
		}

		s.printf("✅ Created: %s | %s", spec.Username, spec.Email)
		report.Created++
	}

	s.rule()
	s.printf("Total users created/found: %d", report.Created+report.Existing)
	return report
}
