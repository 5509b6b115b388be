// Package seed loads demo accounts and items into the stores. Every entry is
// attempted on its own and reported on one line; a failed entry never stops
// the batch.
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

const ruleWidth = 60

// GetLogger returns the seed package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("seed")
}

// UserSpec describes an account to create.
type UserSpec struct {
	Username  string
	Email     string
	Password  string
	Superuser bool
}

// ItemSpec describes a demo item and the account that owns it.
type ItemSpec struct {
	Name        string
	Description string
	Owner       string // username
	Email       string
}

// Report counts the outcome of a batch.
type Report struct {
	Created  int
	Existing int
	Failed   int
}

// Err returns an error when any entry failed.
func (r Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return errors.Newf("%d of %d entries failed", r.Failed, r.Created+r.Existing+r.Failed).
		Component("seed").
		Category(errors.CategoryGeneric).
		Build()
}

// UserStore is the part of the datastore needed to create accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *datastore.User) error
	GetUserByUsername(ctx context.Context, username string) (*datastore.User, error)
}

// ItemStore is the part of the datastore needed to seed table items.
type ItemStore interface {
	GetUserByUsername(ctx context.Context, username string) (*datastore.User, error)
	CreateItem(ctx context.Context, scope datastore.Scope, item *datastore.Item) error
}

// Seeder writes progress lines to out.
type Seeder struct {
	out io.Writer
	log logger.Logger
}

// New returns a Seeder printing to out.
func New(out io.Writer) *Seeder {
	return &Seeder{out: out, log: GetLogger()}
}

func (s *Seeder) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Seeder) rule() {
	s.printf("%s", strings.Repeat("-", ruleWidth))
}

// DemoUsers returns user1..user10 with the shared demo password.
func DemoUsers() []UserSpec {
	users := make([]UserSpec, 0, 10)
	for i := 1; i <= 10; i++ {
		users = append(users, UserSpec{
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: "pass1234",
		})
	}
	return users
}

// DemoItems returns one item for each demo user.
func DemoItems() []ItemSpec {
	items := []ItemSpec{
		{Name: "Laptop Dell XPS", Description: "High-performance ultrabook"},
		{Name: "iPhone 15 Pro", Description: "Latest Apple smartphone"},
		{Name: "Sony Headphones", Description: "Noise-canceling wireless"},
		{Name: `Samsung TV 55"`, Description: "Smart OLED television"},
		{Name: "iPad Pro 12.9", Description: "M2 chip tablet"},
		{Name: "Nintendo Switch", Description: "Gaming console hybrid"},
		{Name: "Canon Camera", Description: "Professional DSLR EOS R5"},
		{Name: "MacBook Pro M3", Description: "14-inch laptop"},
		{Name: "Bose Speaker", Description: "Portable Bluetooth speaker"},
		{Name: "PS5 Console", Description: "Next-gen gaming system"},
	}
	for i := range items {
		items[i].Owner = fmt.Sprintf("user%d", i+1)
		items[i].Email = fmt.Sprintf("user%d@example.com", i+1)
	}
	return items
}
