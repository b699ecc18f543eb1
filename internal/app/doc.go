// Package app composes the compensation engine into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── participant/    # Network members and sponsor links
//	│   ├── matrix/         # Cycles, placement edges, lifecycle events
//	│   └── bonus/          # Bonus records and ledger entries
//	├── plan/               # Compensation plan configuration
//	├── storage/            # Store interfaces plus memory and postgres backends
//	├── services/           # Business logic
//	│   ├── placement/      # Registration and spillover placement
//	│   ├── cycles/         # Cycle lifecycle and reentry
//	│   ├── upline/         # Compressed upline resolution
//	│   ├── payout/         # Pure bonus calculator
//	│   ├── settlement/     # Event settlement and ledger credits
//	│   ├── career/         # Pin ladder progression
//	│   ├── ranking/        # Monthly top producer leaderboard
//	│   └── closing/        # Scheduled period closings
//	├── httpapi/            # HTTP handlers and middleware
//	├── system/             # Service lifecycle management
//	└── metrics/            # Prometheus collectors
//
// Domain packages hold pure data; services hold the business rules; the app
// package wires them together and manages start/stop ordering. Storage
// interfaces default to the in-memory implementation so the whole engine runs
// without external dependencies in tests and local development.
package app
