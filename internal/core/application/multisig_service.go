package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	"github.com/vulpemventures/cosigner/pkg/metrics"
)

// MultisigGraphResolver builds the full multisig graph of an account, ie.
// the graph anchored at the account merged with those anchored at its
// topmost ancestors, so that every multisig account reachable from the root
// is known, not only those on the path to the queried account.
//
// The resolver never fails: any error while fetching data from the node
// results in an empty graph, meaning no multisig info is available.
type MultisigGraphResolver struct {
	repo ports.MultisigRepository

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewMultisigGraphResolver(
	repo ports.MultisigRepository,
) *MultisigGraphResolver {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("multisig resolver: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("multisig resolver: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &MultisigGraphResolver{repo, logFn, warnFn}
}

func (r *MultisigGraphResolver) ResolveFullGraph(
	ctx context.Context, anchor domain.Address,
) domain.MultisigGraph {
	graph, err := r.repo.GetMultisigAccountGraphInfo(ctx, anchor)
	if err != nil {
		r.warn(err, "failed to fetch graph of account %s", anchor)
		metrics.GraphResolved("fallback")
		return domain.MultisigGraph{}
	}

	minLevel := graph.MinLevel()
	if minLevel >= 0 || len(graph[minLevel]) == 0 {
		metrics.GraphResolved("ok")
		return graph
	}

	ancestors := graph[minLevel]
	if len(ancestors) > 1 {
		r.log(
			"account %s has %d topmost ancestors, merging all their graphs",
			anchor, len(ancestors),
		)
	}

	ancestorGraphs, err := iter.MapErr(
		ancestors, func(entry *domain.MultisigEntry) (domain.MultisigGraph, error) {
			g, err := r.repo.GetMultisigAccountGraphInfo(ctx, entry.AccountAddress)
			if err != nil {
				return nil, fmt.Errorf(
					"failed to fetch graph of ancestor %s: %w", entry.AccountAddress, err,
				)
			}
			return g, nil
		},
	)
	if err != nil {
		r.warn(err, "failed to resolve full graph of account %s", anchor)
		metrics.GraphResolved("fallback")
		return domain.MultisigGraph{}
	}

	for _, g := range ancestorGraphs {
		graph = graph.Merge(g.Shift(minLevel))
	}

	metrics.GraphResolved("ok")
	r.log(
		"resolved graph of account %s with %d levels", anchor, len(graph),
	)
	return graph
}

func (r *MultisigGraphResolver) Flatten(
	graph domain.MultisigGraph,
) []domain.MultisigEntry {
	return graph.Flatten()
}
