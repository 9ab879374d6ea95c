package agent

import (
	"sync"

	"github.com/gantryci/gantry/action"
	"github.com/gantryci/gantry/analytics"
	"github.com/gantryci/gantry/config"
	"github.com/gantryci/gantry/engine"
	"github.com/gantryci/gantry/executor"
	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/metadata"
	"github.com/gantryci/gantry/persistence"
	"github.com/gantryci/gantry/persistence/memory"
	rd "github.com/gantryci/gantry/persistence/redis"
	"github.com/gantryci/gantry/rest"
	"github.com/gantryci/gantry/service"
)

type Agent struct {
	Config          config.Config
	metadataStorage persistence.MetadataStorage
	runStorage      persistence.RunStorage
	metadataService metadata.MetadataService
	registry        *action.Registry
	engine          *engine.PipelineEngine
	jobExecutor     *executor.JobExecutor
	pipelineService *service.PipelineService
	httpServer      *rest.Server
	shutdown        bool
	shutdownLock    sync.Mutex
	wg              sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupAnalytics,
		a.setupStorage,
		a.setupMetadataService,
		a.setupEngine,
		a.setupExecutor,
		a.setupPipelineService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupAnalytics() error {
	if a.Config.RunLogFile == "" {
		return nil
	}
	return analytics.InitDataCollector(analytics.DataCollectorConfig{
		FileName:      a.Config.RunLogFile,
		CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
	})
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rdConf := rd.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
		}
		a.metadataStorage = rd.NewRedisMetadataStorage(rdConf)
		a.runStorage = rd.NewRedisRunDao(rdConf)
	default:
		a.metadataStorage = memory.NewInMemMetadataStorage()
		a.runStorage = memory.NewInMemRunStorage()
	}
	return nil
}

func (a *Agent) setupMetadataService() error {
	a.metadataService = metadata.NewMetadataService(a.metadataStorage)
	if a.Config.WorkflowDir == "" {
		return nil
	}
	return metadata.LoadDir(a.metadataService, a.Config.WorkflowDir)
}

func (a *Agent) setupEngine() error {
	a.engine = engine.NewPipelineEngine(a.runStorage, a.Config.DefaultBranch, &a.wg)
	return nil
}

func (a *Agent) setupExecutor() error {
	a.registry = action.NewRegistry()
	a.jobExecutor = executor.NewJobExecutor(a.registry, a.Config.WorkspaceRoot, a.Config.ExecutorCapacity, &a.wg, a.engine.HandleJobResult)
	a.engine.SetDispatcher(a.jobExecutor)
	return nil
}

func (a *Agent) setupPipelineService() error {
	a.pipelineService = service.NewPipelineService(a.metadataService, a.engine)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.pipelineService, a.metadataService, a.runStorage)
	if err != nil {
		return err
	}
	return nil
}

func (a *Agent) Start() error {
	a.engine.Start()
	if err := a.jobExecutor.Start(); err != nil {
		return err
	}
	go func() {
		err := a.httpServer.Start()
		if err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	// the engine stops before the executor so nothing is dispatched into
	// a worker that no longer drains its queue
	shutdown := []func() error{
		a.httpServer.Stop,
		a.engine.Stop,
		a.jobExecutor.Stop,
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
