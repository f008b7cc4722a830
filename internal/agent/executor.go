package agent

import (
	"context"
	"strconv"
	"sync/atomic"

	"mandate/pkg/digest"
)

// DryRun pretends to bridge and bet. Transaction references are derived from
// the market and a counter so repeated runs are distinguishable in the ledger.
// Opportunities on SourceChain need no bridge and get no burn or mint.
type DryRun struct {
	SourceChain uint32
	seq         atomic.Uint64
}

func (d *DryRun) Execute(ctx context.Context, opp Opportunity) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	n := strconv.FormatUint(d.seq.Add(1), 10)
	ref := func(kind string) string {
		return "dryrun-" + kind + "-" + digest.Sum([]byte(kind+"/"+opp.MarketID+"/"+n)).Hex()[:16]
	}
	r := Receipt{BetTx: ref("bet")}
	if opp.ChainID != d.SourceChain {
		r.BurnTx = ref("burn")
		r.MintTx = ref("mint")
	}
	return r, nil
}
