package migration

import (
	branchdomain "github.com/smallbiznis/tillway/internal/branch/domain"
	"github.com/smallbiznis/tillway/internal/config"
	customerdomain "github.com/smallbiznis/tillway/internal/customer/domain"
	productdomain "github.com/smallbiznis/tillway/internal/product/domain"
	saledomain "github.com/smallbiznis/tillway/internal/sale/domain"
	"github.com/smallbiznis/tillway/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg *config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql local setups build the schema from the models.
			if err := conn.AutoMigrate(
				&branchdomain.Branch{},
				&productdomain.Product{},
				&customerdomain.Customer{},
				&saledomain.Sale{},
				&saledomain.SaleLineItem{},
			); err != nil {
				return err
			}
		}

		if cfg.DefaultBranchID != 0 {
			return seed.EnsureMainBranchWithID(conn, cfg.DefaultBranchID)
		}
		return seed.EnsureMainBranch(conn)
	}),
)
