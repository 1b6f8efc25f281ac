package migration

import (
	"errors"

	dutyjobdomain "github.com/navlun/landedcost/internal/dutyjob/domain"
	insurancedomain "github.com/navlun/landedcost/internal/insurance/domain"
	"gorm.io/gorm"
)

// Run creates the core tables on startup so the service is usable out of
// the box for local and self-hosted environments. AutoMigrate keeps the
// schema portable across the supported dialects.
func Run(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	return db.AutoMigrate(
		&dutyjobdomain.DutyCalculationJob{},
		&insurancedomain.InsuranceRange{},
	)
}
