// Package upgrades runs timed, level-based upgrades paid for from the
// player's wallet.
package upgrades

import (
	"sort"
	"time"

	"github.com/neuroforge/backend/internal/models"
)

// Step is the price and build time of one level transition.
type Step struct {
	Cost     int64
	Duration time.Duration
}

// Table maps a category to its steps. steps[L-1] takes a record from level L
// to L+1, so a category with n steps tops out at level n+1. A Table is not
// modified after it is handed to a Service.
type Table map[string][]Step

func minutes(costs []int64, mins []int) []Step {
	steps := make([]Step, len(costs))
	for i := range costs {
		steps[i] = Step{Cost: costs[i], Duration: time.Duration(mins[i]) * time.Minute}
	}
	return steps
}

func DefaultTable() Table {
	return Table{
		models.UpgradeDataCenter: minutes([]int64{500, 1000, 2000, 4000}, []int{5, 15, 60, 180}),
		models.UpgradeDatasets:   minutes([]int64{400, 800, 1600, 3200}, []int{3, 10, 45, 120}),
		models.UpgradeTalent:     minutes([]int64{600, 1200, 2400, 4800}, []int{7, 20, 90, 240}),
	}
}

func (t Table) Has(category string) bool {
	_, ok := t[category]
	return ok
}

func (t Table) MaxLevel(category string) int {
	return len(t[category]) + 1
}

// Next returns the step that upgrades a record currently at level.
func (t Table) Next(category string, level int) (Step, bool) {
	steps := t[category]
	if level < 1 || level > len(steps) {
		return Step{}, false
	}
	return steps[level-1], true
}

// Categories lists the table's categories in a stable order.
func (t Table) Categories() []string {
	out := make([]string, 0, len(t))
	for _, c := range []string{models.UpgradeDataCenter, models.UpgradeDatasets, models.UpgradeTalent} {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	var extra []string
	for c := range t {
		switch c {
		case models.UpgradeDataCenter, models.UpgradeDatasets, models.UpgradeTalent:
		default:
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
