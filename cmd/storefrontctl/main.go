package main

import (
	"fmt"
	"log"
	"os"

	"storefront-service/config"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "storefrontctl",
		Usage: "administer the storefront database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "driver", Usage: "database driver (postgres or sqlite3)", EnvVars: []string{"DATABASE_DRIVER"}},
			&cli.StringFlag{Name: "database", Usage: "database URL", EnvVars: []string{"DATABASE_URL"}},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "bring the schema up to date",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "to", Usage: "stop at this schema version", Value: store.LatestVersion},
					&cli.BoolFlag{Name: "seed", Usage: "seed a freshly created database"},
				},
				Action: migrateAction,
			},
			{
				Name:   "version",
				Usage:  "print the current schema version",
				Action: versionAction,
			},
			{
				Name:  "user",
				Usage: "manage accounts",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "create an account",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "username", Required: true},
							&cli.StringFlag{Name: "password", Required: true},
							&cli.StringFlag{Name: "role"},
							&cli.StringFlag{Name: "email"},
						},
						Action: userAddAction,
					},
					{
						Name:  "passwd",
						Usage: "set a new password",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "username", Required: true},
							&cli.StringFlag{Name: "password", Required: true},
						},
						Action: userPasswdAction,
					},
				},
			},
			{
				Name:   "report",
				Usage:  "print store totals and the most reserved products",
				Action: reportAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type env struct {
	cfg   *config.Config
	store *store.Store
}

// open loads config, applies flag overrides and connects to the database
func open(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := c.String("driver"); v != "" {
		cfg.Database.Driver = v
	}
	if v := c.String("database"); v != "" {
		cfg.Database.URL = v
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		return nil, err
	}

	s, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: s}, nil
}

func (e *env) close() {
	e.store.Close()
	util.SyncLogger()
}

func (e *env) hasher() *service.PasswordHasher {
	return service.NewPasswordHasher(e.cfg.Security.PasswordIterations)
}

func migrateAction(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	var seed *store.Seed
	if c.Bool("seed") {
		seed, err = service.BuildSeed(e.hasher(), e.cfg.Seed.AdminPassword, e.cfg.Seed.AdminEmail)
		if err != nil {
			return err
		}
	}

	result, err := store.NewMigrator(e.store).MigrateTo(c.Context, c.Int("to"), seed)
	if err != nil {
		return err
	}

	util.GetLogger().Info("Migration finished",
		zap.Int("from", result.From),
		zap.Int("to", result.To),
		zap.Bool("created", result.Created))
	fmt.Printf("schema version %d -> %d (applied %v)\n", result.From, result.To, result.Applied)
	return nil
}

func versionAction(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	version, err := store.NewMigrator(e.store).Version(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d (latest %d)\n", version, store.LatestVersion)
	return nil
}

func userAddAction(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	users := service.NewUserService(e.store, e.hasher(), nil)
	user, err := users.Register(c.Context, &service.RegisterRequest{
		Username: c.String("username"),
		Password: c.String("password"),
		Role:     c.String("role"),
		Email:    c.String("email"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("created user %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
	return nil
}

func userPasswdAction(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	users := service.NewUserService(e.store, e.hasher(), nil)
	affected, err := users.ChangePassword(c.Context, c.String("username"), c.String("password"))
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrUserNotFound
	}
	fmt.Printf("password updated for %s\n", c.String("username"))
	return nil
}

func reportAction(c *cli.Context) error {
	e, err := open(c)
	if err != nil {
		return err
	}
	defer e.close()

	reports := service.NewReportService(e.store)
	overview, err := reports.Overview(c.Context)
	if err != nil {
		return err
	}
	top, err := reports.TopReserved(c.Context, service.DefaultTopReservedLimit)
	if err != nil {
		return err
	}

	fmt.Printf("users: %d\nproducts: %d\ncart units: %d\ncart value: %s\n",
		overview.TotalUsers, overview.TotalProducts, overview.CartUnits, overview.CartValue.StringFixed(2))
	for _, p := range top {
		fmt.Printf("  %-30s %5d reserved @ %s\n", p.Name, p.Reserved, p.Price.StringFixed(2))
	}
	return nil
}
