package chain

import (
	"github.com/pandodao/sac-wallet/core"
)

type registry struct {
	chains map[core.NetworkType]core.Chain
}

// NewRegistry indexes chains by the network they serve.
func NewRegistry(chains ...core.Chain) core.ChainRegistry {
	r := &registry{chains: make(map[core.NetworkType]core.Chain, len(chains))}
	for _, c := range chains {
		r.chains[c.Network()] = c
	}

	return r
}

func (r *registry) Get(network core.NetworkType) (core.Chain, error) {
	c, ok := r.chains[network]
	if !ok {
		return nil, &core.UnsupportedNetworkError{Network: string(network)}
	}

	return c, nil
}
