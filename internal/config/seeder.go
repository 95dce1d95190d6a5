package config

import (
	"context"
	"fmt"
	"log"

	"campus-admissions/internal/adapters/persistence/models"
	"campus-admissions/internal/adapters/persistence/repositories"
	"campus-admissions/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	users repositories.UserRepository
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{users: repositories.NewUserRepository(db)}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(context.Background()); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser creates the first admin account when none exists.
// Credentials come from SEED_ADMIN_USER / SEED_ADMIN_PASS.
func (s *Seeder) seedAdminUser(ctx context.Context) error {
	count, err := s.users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plain := getEnv("SEED_ADMIN_PASS", "")
	if plain == "" {
		log.Println("⚠️ Skipping admin seed: SEED_ADMIN_PASS is not set")
		return nil
	}
	if !password.ValidatePassword(plain) {
		return fmt.Errorf("SEED_ADMIN_PASS must be at least %d characters", password.MinLength)
	}

	username := getEnv("SEED_ADMIN_USER", "admin")
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("⚠️ Skipping admin seed: username %s is taken by a non-admin account", username)
		return nil
	}

	hashedPassword, err := password.Hash(plain)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: username,
		Email:    getEnv("SEED_ADMIN_EMAIL", "admin@localhost"),
		Password: hashedPassword,
		Role:     models.RoleAdmin,
		IsActive: true,
	}

	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}
