package app

import (
	"context"
	"fmt"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/career"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/closing"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/cycles"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/placement"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/ranking"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/settlement"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/upline"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage/memory"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/system"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Participants storage.ParticipantStore
	Matrix       storage.MatrixStore
	Events       storage.EventStore
	Bonuses      storage.BonusStore
	Ledger       storage.LedgerStore
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Stores Stores
	Plans  *plan.Store
	Board  ranking.Leaderboard

	Placement  *placement.Service
	Upline     *upline.Service
	Cycles     *cycles.Service
	Career     *career.Service
	Settlement *settlement.Service
	Closer     *closing.Closer
}

// New builds a fully initialised application with the provided stores and
// leaderboard. A nil board falls back to the in-process implementation; a nil
// plan store gets the built-in plan.
func New(stores Stores, plans *plan.Store, board ranking.Leaderboard, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if plans == nil {
		plans = plan.NewStore(plan.Default(), "")
	}
	if err := plans.Current().Validate(); err != nil {
		return nil, fmt.Errorf("plan config: %w", err)
	}

	mem := memory.New()
	if stores.Participants == nil {
		stores.Participants = mem
	}
	if stores.Matrix == nil {
		stores.Matrix = mem
	}
	if stores.Events == nil {
		stores.Events = mem
	}
	if stores.Bonuses == nil {
		stores.Bonuses = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if board == nil {
		board = ranking.NewMemory()
	}

	manager := system.NewManager()

	uplineSvc := upline.New(stores.Participants, stores.Matrix, log)
	cyclesSvc := cycles.New(stores.Matrix, stores.Events, plans, log)
	placementSvc := placement.New(stores.Participants, stores.Matrix, cyclesSvc, log)
	careerSvc := career.New(stores.Participants, stores.Matrix, stores.Bonuses, stores.Ledger, plans, log)
	settlementSvc := settlement.New(stores.Participants, stores.Matrix, stores.Events,
		stores.Bonuses, stores.Ledger, uplineSvc, careerSvc, board, plans, log)
	closer := closing.New(stores.Bonuses, board, log)

	for _, name := range []string{"placement", "cycles", "career"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	poller := settlement.NewPoller(settlementSvc, log)
	for _, svc := range []system.Service{poller, closer} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		Stores:     stores,
		Plans:      plans,
		Board:      board,
		Placement:  placementSvc,
		Upline:     uplineSvc,
		Cycles:     cyclesSvc,
		Career:     careerSvc,
		Settlement: settlementSvc,
		Closer:     closer,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
