package voice

import "math/rand/v2"

// Policy selects how agents without an assignment get a voice.
type Policy string

const (
	// PolicyRandom assigns each new agent a random unused pool voice and
	// remembers it for the session.
	PolicyRandom Policy = "random"
	// PolicyFixed resolves agents through the model-voice prefix table.
	PolicyFixed Policy = "fixed"
)

// Resolver turns an agent identity into a voice ID.
type Resolver struct {
	Store  Store
	Policy Policy

	// randIntN is swappable for deterministic tests.
	randIntN func(n int) int
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store, policy Policy) *Resolver {
	return &Resolver{
		Store:    store,
		Policy:   policy,
		randIntN: rand.IntN,
	}
}

// Resolve returns the voice for an agent. An explicit voice is returned
// verbatim without validation. Unknown agents are always accepted; there
// are no error conditions.
func (r *Resolver) Resolve(agentID, explicitVoice string) string {
	if explicitVoice != "" {
		return explicitVoice
	}
	if r.Policy == PolicyFixed {
		return MatchModelVoice(agentID)
	}
	return r.assign(agentID)
}

// assign returns the agent's session voice, picking and persisting a new one
// on first use. Picks are uniform over the pool voices not yet used this
// session; once the pool is exhausted, reuse is allowed.
func (r *Resolver) assign(agentID string) string {
	session := r.Store.Load()

	if v, ok := session.Agents[agentID]; ok {
		return v
	}

	used := make(map[string]bool, len(session.UsedVoices))
	for _, v := range session.UsedVoices {
		used[v] = true
	}

	available := make([]string, 0, len(Pool))
	for _, v := range Pool {
		if !used[v.ID] {
			available = append(available, v.ID)
		}
	}
	if len(available) == 0 {
		for _, v := range Pool {
			available = append(available, v.ID)
		}
	}

	chosen := available[r.randIntN(len(available))]

	session.Agents[agentID] = chosen
	session.UsedVoices = append(session.UsedVoices, chosen)
	// A failed save costs stickiness, not correctness; the voice is still
	// valid for this invocation.
	_ = r.Store.Save(session)
	return chosen
}
