package seed

import (
	"context"

	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/sheets"
)

// SheetItems makes sure the worksheet has an owner column, then appends each
// item owned by its email.
func (s *Seeder) SheetItems(ctx context.Context, repo *sheets.Repository, items []ItemSpec) Report {
	var report Report

	s.printf("Adding owner column header and %d items to the worksheet...", len(items))
	s.rule()

	if err := repo.EnsureOwnerColumn(ctx); err != nil {
		// appending still works against whatever header is present
		s.printf("⚠️  Email column: %v", err)
	} else {
		s.printf("✅ Email column header added/verified")
	}

	for _, item := range items {
		name, description := item.Name, item.Description
		rec, err := repo.Create(ctx, sheets.Input{Name: &name, Description: &description}, item.Email)
		if err != nil {
			s.printf("❌ Error adding %s: %v", item.Name, err)
			s.log.Warn("seed sheet item failed", logger.String("name", item.Name), logger.Error(err))
			report.Failed++
			continue
		}
		s.printf("✅ Added: ID %d | %s | %s", rec.ID, rec.Name, rec.Email)
		report.Created++
	}

	s.rule()
	s.summary(items)
	return report
}

// TableItems inserts each item into the relational table owned by the
// account named in Owner.
func (s *Seeder) TableItems(ctx context.Context, store ItemStore, items []ItemSpec) Report {
	var report Report

	s.printf("Adding %d items to the items table...", len(items))
	s.rule()

	for _, item := range items {
		owner, err := store.GetUserByUsername(ctx, item.Owner)
		if err != nil {
			s.printf("❌ Error adding %s: owner %s: %v", item.Name, item.Owner, err)
			report.Failed++
			continue
		}

		row := &datastore.Item{Name: item.Name, Description: item.Description}
		if err := store.CreateItem(ctx, datastore.Scope{UserID: owner.ID}, row); err != nil {
			s.printf("❌ Error adding %s: %v", item.Name, err)
			s.log.Warn("seed table item failed", logger.String("name", item.Name), logger.Error(err))
			report.Failed++
			continue
		}
		s.printf("✅ Added: ID %d | %s | %s", row.ID, row.Name, owner.Username)
		report.Created++
	}

	s.rule()
	return report
}

func (s *Seeder) summary(items []ItemSpec) {
	s.printf("%-4s | %-20s | %-25s", "#", "Name", "Email")
	s.rule()
	for i, item := range items {
		s.printf("%-4d | %-20s | %-25s", i+1, item.Name, item.Email)
	}
}
