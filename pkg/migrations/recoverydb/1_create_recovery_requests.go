package recoverydb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/novavault/recovery-middleware/pkg/pgutil/migrations"
	"github.com/novavault/recovery-middleware/pkg/recoverystore"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			log.Println("creating recovery_requests table...")
			if err := mghelper.CreateSchema(ctx, db, (*recoverystore.RequestDao)(nil)); err != nil {
				return err
			}
			return mghelper.CreateModelIndexes(ctx, db,
				(*recoverystore.RequestDao)(nil), "status", "request_id")
		},
		func(ctx context.Context, db *bun.DB) error {
			log.Println("dropping recovery_requests table...")
			return mghelper.DropTables(ctx, db, (*recoverystore.RequestDao)(nil))
		},
	)
}
