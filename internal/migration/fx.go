package migration

import (
	"github.com/pixelmint/pixelmint/internal/config"
	creditdomain "github.com/pixelmint/pixelmint/internal/credit/domain"
	orderdomain "github.com/pixelmint/pixelmint/internal/order/domain"
	taskdomain "github.com/pixelmint/pixelmint/internal/task/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// The versioned SQL targets postgres; other dialects, used for
			// local development and tests, get the gorm-derived schema.
			return conn.AutoMigrate(
				&creditdomain.Account{},
				&creditdomain.CreditTransaction{},
				&taskdomain.Task{},
				&orderdomain.Order{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
