package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/obralink/importkit/modules/importing/domain/row"
	"github.com/obralink/importkit/modules/importing/infrastructure/persistence"
	"github.com/obralink/importkit/modules/importing/services"
	"github.com/obralink/importkit/modules/importing/services/importers"
	"github.com/obralink/importkit/pkg/composables"
	"github.com/obralink/importkit/pkg/configuration"
	"github.com/obralink/importkit/pkg/eventbus"
	"github.com/obralink/importkit/pkg/tabular"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "importctl",
		Short:         "Spreadsheet import reconciliation tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newRevertCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type app struct {
	conf    *configuration.Configuration
	log     *logrus.Logger
	pool    *pgxpool.Pool
	bus     eventbus.EventBus
	imports *services.ImportService
}

func newApp(ctx context.Context) (*app, error) {
	conf := configuration.Use()
	log := conf.Logger()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	bus := eventbus.NewEventPublisher(log)
	catalogs := persistence.NewCatalogRepository()
	lookups := persistence.NewLookupRepository()
	patterns := persistence.NewPatternRepository()
	batches := persistence.NewBatchRepository()

	svc := services.NewImportService(
		batches,
		catalogs,
		services.NewConflictService(lookups, patterns),
		bus,
		log,
		conf.Import.MaxRows,
	)
	currency := conf.Import.DefaultCurrency
	svc.Register(importers.NewPaymentImporter(catalogs, lookups, currency))
	svc.Register(importers.NewMaterialImporter(catalogs, lookups, currency))
	svc.Register(importers.NewContactImporter(catalogs))
	svc.Register(importers.NewTaskImporter(catalogs, lookups))
	svc.Register(importers.NewDivisionImporter(catalogs))
	svc.Register(importers.NewRecipeImporter(catalogs, lookups))

	bus.Subscribe(services.NewPatternLearner(patterns, log).OnImportCompleted)

	return &app{conf: conf, log: log, pool: pool, bus: bus, imports: svc}, nil
}

func (a *app) close() {
	a.pool.Close()
}

// requestCtx builds the context every service call expects: pool, tenant and
// optionally the acting user.
func (a *app) requestCtx(ctx context.Context, tenant string, userID uint) (context.Context, error) {
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return nil, fmt.Errorf("invalid --tenant: %w", err)
	}
	ctx = composables.WithPool(ctx, a.pool)
	ctx = composables.WithTenantID(ctx, tenantID)
	if userID != 0 {
		ctx = composables.WithUserID(ctx, userID)
	}
	return ctx, nil
}

// readRows loads a spreadsheet or CSV file and binds it to the family schema.
func readRows(path string, schema row.Schema) ([]row.Row, error) {
	var (
		table *tabular.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = tabular.ReadXLSX(path)
	default:
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, openErr
		}
		defer f.Close()
		table, err = tabular.ReadCSV(f)
	}
	if err != nil {
		return nil, err
	}
	return tabular.MapRows(table, schema)
}
