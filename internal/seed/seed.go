package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/smallbiznis/tillway/internal/branch/domain"
	"gorm.io/gorm"
)

const (
	defaultBranchCode = "MAIN"
	defaultBranchName = "Main"
)

// EnsureMainBranch seeds the default branch for startup bootstrap.
func EnsureMainBranch(db *gorm.DB) error {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}
	return ensureMainBranch(db, node.Generate())
}

// EnsureMainBranchWithID seeds the default branch under a fixed ID so
// single-branch deployments can pin DEFAULT_BRANCH in their environment.
func EnsureMainBranchWithID(db *gorm.DB, id int64) error {
	if id == 0 {
		return errors.New("seed branch id is required")
	}
	return ensureMainBranch(db, snowflake.ID(id))
}

func ensureMainBranch(db *gorm.DB, id snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&branchdomain.Branch{}).
			Where("code = ?", defaultBranchCode).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		return tx.Create(&branchdomain.Branch{
			ID:       id,
			Code:     defaultBranchCode,
			Name:     defaultBranchName,
			Currency: "USD",
			Active:   true,
		}).Error
	})
}
