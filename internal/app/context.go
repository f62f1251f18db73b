package app

import (
	"fmt"

	"go.uber.org/zap"

	"projectdesk/internal/config"
	"projectdesk/internal/datasource"
	"projectdesk/internal/events"
	"projectdesk/internal/fixture"
	"projectdesk/internal/logging"
	"projectdesk/internal/metrics"
	"projectdesk/internal/remote"
	"projectdesk/internal/service"
	"projectdesk/internal/store"
)

// App is the assembled process: config, logger, metrics and one provider
// per data source.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Metrics   *metrics.Prometheus
	Dataset   *fixture.Dataset
	Client    *remote.Client
	Providers *service.Set
	Bus       *events.Bus
}

// Stores is one set of view stores over a single provider.
type Stores struct {
	Employees *store.EmployeeStore
	Projects  *store.ProjectStore
	Todos     *store.TodoStore
	Notes     *store.NoteStore
}

// New wires every component from cfg. Both data sources are built; cfg picks
// the default one.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logging.OrNop(log)
	seed, err := fixture.LoadSeedFile(cfg.Fixture.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	prom := metrics.NewPrometheus()

	client := remote.New(cfg.DataSource.APIBaseURL)
	client.Timeout = cfg.DataSource.Timeout
	client.Log = log.Named("remote")
	client.Metrics = prom.ForSource(string(datasource.Remote))

	dataset := fixture.NewDataset(seed)
	providers, err := service.NewSet(cfg.Mode(), service.Deps{
		Dataset: dataset,
		Fixture: fixture.Options{
			Latency:       cfg.Fixture.Latency,
			SearchLatency: cfg.Fixture.SearchLatency,
			Metrics:       prom.ForSource(string(datasource.Fixture)),
		},
		Client: client,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("app ready",
		zap.String("mode", cfg.Mode().String()),
		zap.String("api_base_url", cfg.DataSource.APIBaseURL),
	)
	return &App{
		Config:    cfg,
		Log:       log,
		Metrics:   prom,
		Dataset:   dataset,
		Client:    client,
		Providers: providers,
		Bus:       &events.Bus{},
	}, nil
}

// Provider resolves override against the configured default.
func (a *App) Provider(override *datasource.Mode) *service.Provider {
	return a.Providers.For(override)
}

// Stores builds view stores over p sharing the app's bus.
func (a *App) Stores(p *service.Provider) Stores {
	opts := store.Options{Log: a.Log.Named("store"), Bus: a.Bus}
	employees := store.NewEmployeeStore(p.Employees, opts)
	return Stores{
		Employees: employees,
		Projects:  store.NewProjectStore(p.Projects, p.Employees, opts),
		Todos:     store.NewTodoStore(p.Todos, employees, opts),
		Notes:     store.NewNoteStore(p.Notes, opts),
	}
}
