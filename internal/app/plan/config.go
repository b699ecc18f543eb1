package plan

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/domain/matrix"
)

// Config is the full compensation plan. Every percentage is expressed against
// the cycle base value; the five pool percentages must add up to the plan's
// committed distribution share.
type Config struct {
	Cycle    CycleConfig    `yaml:"cycle"`
	Depth    DepthConfig    `yaml:"depth"`
	Fidelity FidelityConfig `yaml:"fidelity"`
	TopRank  TopRankConfig  `yaml:"topRank"`
	Career   CareerConfig   `yaml:"career"`
	Reentry  ReentryConfig  `yaml:"reentry"`
}

// CycleConfig parameterizes the base activation amount and the owner's direct
// share on cycle completion.
type CycleConfig struct {
	BaseValue float64 `yaml:"baseValue"`
	PayoutPct float64 `yaml:"payoutPct"`
}

// DepthConfig parameterizes distribution over the six compressed upline
// levels. Weights are percentages of the depth pool and must sum to 100.
type DepthConfig struct {
	TotalPct float64   `yaml:"totalPct"`
	Weights  []float64 `yaml:"weights"`
}

// FidelityConfig parameterizes the loyalty pool paid to reentered upline
// members using the depth weight vector.
type FidelityConfig struct {
	TotalPct float64 `yaml:"totalPct"`
}

// TopRankConfig parameterizes the monthly top producer pool. Weights are
// percentages per leaderboard position and must sum to 100.
type TopRankConfig struct {
	TotalPct float64   `yaml:"totalPct"`
	Weights  []float64 `yaml:"weights"`
}

// Pin is one rung of the career ladder. Threshold counts accumulated valid
// cycles; Reward, when non-zero, is credited once on promotion. MaxLinePct
// caps how much any single direct line may contribute to the threshold, and
// MinLines requires that many distinct producing lines before the pin is
// reachable.
type Pin struct {
	Name       string  `yaml:"name"`
	Threshold  int     `yaml:"threshold"`
	Reward     float64 `yaml:"reward"`
	MaxLinePct float64 `yaml:"maxLinePct"`
	MinLines   int     `yaml:"minLines"`
}

// CareerConfig parameterizes the career accrual pool and the pin ladder.
type CareerConfig struct {
	TotalPct float64 `yaml:"totalPct"`
	Pins     []Pin   `yaml:"pins"`
}

// ReentryConfig bounds how many times an owner may reenter per calendar month.
type ReentryConfig struct {
	MonthlyLimit int `yaml:"monthlyLimit"`
}

// DistributionPct is the committed share of the base value paid out across
// all pools for every completed cycle.
const DistributionPct = 48.95

const pctEpsilon = 0.01

// The production plan fixes the shape of both weight tables.
const (
	topRankPositions = 10
	careerPinCount   = 13
)

// Default returns the production plan.
func Default() Config {
	return Config{
		Cycle: CycleConfig{BaseValue: 360.00, PayoutPct: 30},
		Depth: DepthConfig{
			TotalPct: 6.81,
			Weights:  []float64{7, 8, 10, 15, 25, 35},
		},
		Fidelity: FidelityConfig{TotalPct: 1.25},
		TopRank: TopRankConfig{
			TotalPct: 4.5,
			Weights:  []float64{25, 18, 14, 11, 9, 7, 6, 4, 3.5, 2.5},
		},
		Career: CareerConfig{
			TotalPct: 6.39,
			Pins: []Pin{
				{Name: "Bronze", Threshold: 5, MaxLinePct: 50},
				{Name: "Prata", Threshold: 15, MaxLinePct: 50},
				{Name: "Ouro", Threshold: 70, MaxLinePct: 50},
				{Name: "Safira", Threshold: 150, MaxLinePct: 40, MinLines: 2},
				{Name: "Esmeralda", Threshold: 300, Reward: 810.00, MaxLinePct: 40, MinLines: 2},
				{Name: "Topazio", Threshold: 500, Reward: 1350.00, MaxLinePct: 40, MinLines: 2},
				{Name: "Rubi", Threshold: 750, MaxLinePct: 40, MinLines: 2},
				{Name: "Diamante", Threshold: 1500, MaxLinePct: 30, MinLines: 3},
				{Name: "Duplo Diamante", Threshold: 3000, MaxLinePct: 30, MinLines: 3},
				{Name: "Triplo Diamante", Threshold: 5000, MaxLinePct: 30, MinLines: 3},
				{Name: "Diamante Red", Threshold: 15000, MaxLinePct: 30, MinLines: 3},
				{Name: "Diamante Blue", Threshold: 25000, MaxLinePct: 30, MinLines: 3},
				{Name: "Diamante Black", Threshold: 50000, MaxLinePct: 30, MinLines: 3},
			},
		},
		Reentry: ReentryConfig{MonthlyLimit: 10},
	}
}

// Load reads and validates a plan from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read plan config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse plan config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate plan config: %w", err)
	}
	return cfg, nil
}

// Validate checks the internal consistency of the plan.
func (c Config) Validate() error {
	if c.Cycle.BaseValue <= 0 {
		return fmt.Errorf("cycle base value must be positive, got %.2f", c.Cycle.BaseValue)
	}
	if c.Cycle.PayoutPct <= 0 || c.Cycle.PayoutPct > 100 {
		return fmt.Errorf("cycle payout pct out of range: %.2f", c.Cycle.PayoutPct)
	}
	if len(c.Depth.Weights) != 6 {
		return fmt.Errorf("depth weights must have 6 levels, got %d", len(c.Depth.Weights))
	}
	if err := weightsSumTo100("depth", c.Depth.Weights); err != nil {
		return err
	}
	if len(c.TopRank.Weights) != topRankPositions {
		return fmt.Errorf("top rank weights must have %d positions, got %d", topRankPositions, len(c.TopRank.Weights))
	}
	if err := weightsSumTo100("top rank", c.TopRank.Weights); err != nil {
		return err
	}

	total := c.Cycle.PayoutPct + c.Depth.TotalPct + c.Fidelity.TotalPct +
		c.TopRank.TotalPct + c.Career.TotalPct
	if math.Abs(total-DistributionPct) > pctEpsilon {
		return fmt.Errorf("pool percentages sum to %.4f, want %.2f", total, DistributionPct)
	}

	if len(c.Career.Pins) != careerPinCount {
		return fmt.Errorf("career pin table must have %d pins, got %d", careerPinCount, len(c.Career.Pins))
	}
	prev := 0
	for i, pin := range c.Career.Pins {
		if pin.Name == "" {
			return fmt.Errorf("career pin %d has no name", i)
		}
		if pin.Threshold <= prev {
			return fmt.Errorf("career pin %q threshold %d not strictly increasing", pin.Name, pin.Threshold)
		}
		if pin.MaxLinePct <= 0 || pin.MaxLinePct > 100 {
			return fmt.Errorf("career pin %q max line pct out of range: %.2f", pin.Name, pin.MaxLinePct)
		}
		if pin.MinLines < 0 || pin.MinLines > matrix.Width {
			return fmt.Errorf("career pin %q min lines out of range: %d", pin.Name, pin.MinLines)
		}
		prev = pin.Threshold
	}

	if c.Reentry.MonthlyLimit <= 0 {
		return fmt.Errorf("reentry monthly limit must be positive, got %d", c.Reentry.MonthlyLimit)
	}
	return nil
}

func weightsSumTo100(name string, weights []float64) error {
	var sum float64
	for i, w := range weights {
		if w <= 0 {
			return fmt.Errorf("%s weight %d must be positive, got %.2f", name, i+1, w)
		}
		sum += w
	}
	if math.Abs(sum-100) > pctEpsilon {
		return fmt.Errorf("%s weights sum to %.4f, want 100", name, sum)
	}
	return nil
}
