package cleanup

import (
	"sort"

	"github.com/elastic/dorothy/pkg/ledger"
)

// kindPriority is the explicit cross-kind reversal order: dependents are
// always reversed before the objects that own them (a session before its
// user, a role grant before the user it elevates). Within a kind, records
// reverse in the opposite order of their creation.
var kindPriority = map[ledger.Kind]int{
	ledger.KindSession:    0,
	ledger.KindFactor:     1,
	ledger.KindToken:      2,
	ledger.KindRole:       3,
	ledger.KindPolicyRule: 4,
	ledger.KindPolicy:     5,
	ledger.KindZone:       6,
	ledger.KindApp:        7,
	ledger.KindGroup:      8,
	ledger.KindUser:       9,
}

func orderForReversal(records []*ledger.Record) []*ledger.Record {
	ordered := make([]*ledger.Record, len(records))
	copy(ordered, records)

	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := kindPriority[ordered[i].Kind], kindPriority[ordered[j].Kind]
		if pi != pj {
			return pi < pj
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	return ordered
}
