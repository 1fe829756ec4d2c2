package main

import (
	"github.com/netscope-network/netscope/pkg/broadcast"
	"github.com/netscope-network/netscope/pkg/config"
	"github.com/netscope-network/netscope/pkg/device"
	"github.com/netscope-network/netscope/pkg/execstore"
	"github.com/netscope-network/netscope/pkg/executor"
	"github.com/netscope-network/netscope/pkg/job"
)

// engine wires the automation components together: one config source
// feeding the jumphost and connection pool, a job manager publishing to
// the broadcaster, and the executor driving it all. Lifecycle is owned
// here, not by the packages (no process-wide singletons).
type engine struct {
	src         *config.Source
	jumphost    *device.Jumphost
	pool        *device.Pool
	broadcaster *broadcast.Broadcaster
	jobs        *job.Manager
	store       *execstore.Store
	executor    *executor.Executor
}

// newEngine assembles an engine rooted at the app's data directory.
func newEngine(a *App) (*engine, error) {
	store, err := execstore.NewStore(a.executionsDir())
	if err != nil {
		return nil, err
	}

	src := config.NewSource(a.jumphostPath)
	jumphost := device.NewJumphost(src)
	pool := device.NewPool(src, jumphost)
	broadcaster := broadcast.New()
	jobs := job.NewManager(broadcaster)
	exec := executor.New(jobs, executor.PoolOpener{Pool: pool}, store)

	return &engine{
		src:         src,
		jumphost:    jumphost,
		pool:        pool,
		broadcaster: broadcaster,
		jobs:        jobs,
		store:       store,
		executor:    exec,
	}, nil
}

// close releases connections and stops the broadcaster.
func (e *engine) close() {
	e.pool.DisconnectAll()
	e.jumphost.Close()
	e.broadcaster.Close()
}
