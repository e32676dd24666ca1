package app

import (
	"context"

	"github.com/avast/retry-go/v4"
	"github.com/tubegrab/tubegrab/internal/app/server"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/pkg/log"
	"github.com/tubegrab/tubegrab/internal/provider"
	"github.com/tubegrab/tubegrab/internal/repository"
	"github.com/tubegrab/tubegrab/internal/service"
	"golang.org/x/sync/errgroup"
)

type App struct {
	conf *config.Config
}

func NewApp(conf *config.Config) *App {
	return &App{
		conf: conf,
	}
}

func (app *App) Run(ctx context.Context) error {
	p, err := provider.New(app.conf)
	if err != nil {
		return err
	}

	// Startup-only retries; the request path never retries.
	if len(app.conf.Provider.Key) > 0 {
		err = retry.Do(
			func() error {
				return p.Ping(ctx)
			},
			retry.Context(ctx),
			retry.Attempts(app.conf.Provider.ProbeAttempts),
		)
		if err != nil {
			log.Logger.Warnw("provider probe failed, serving anyway", "error", err)
		}
	} else {
		log.Logger.Warnw("no provider api key configured, requests will fail")
	}

	inMemRepo, err := repository.NewInMemRepository()
	if err != nil {
		return err
	}

	vs, err := service.NewVideoService(app.conf, p, inMemRepo)
	if err != nil {
		return err
	}

	errGroup, errCtx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		return server.NewServer(app.conf, vs).Run(errCtx)
	})

	return errGroup.Wait()
}
