package flow_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/retrieval-gateway/internal/flow"
	flowmock "github.com/openkcm/retrieval-gateway/internal/flow/mock"
)

func TestSweepExpiredFlows(t *testing.T) {
	repo := flowmock.NewInMemRepository(nil, nil, nil, nil)
	repo.Flows["live"] = flow.Flow{ID: "live", Expiry: time.Now().Add(time.Hour)}
	repo.Flows["stale"] = flow.Flow{ID: "stale", Expiry: time.Now().Add(-time.Minute)}

	manager := flow.NewManager(repo, &fakeUpstream{}, testManagerConfig())

	require.NoError(t, manager.SweepExpiredFlows(t.Context()))

	assert.Contains(t, repo.Flows, "live")
	assert.NotContains(t, repo.Flows, "stale")
}

func TestSweepExpiredFlowsListFailure(t *testing.T) {
	listErr := errors.New("store down")
	repo := flowmock.NewInMemRepository(nil, nil, nil, listErr)

	manager := flow.NewManager(repo, &fakeUpstream{}, testManagerConfig())

	assert.ErrorIs(t, manager.SweepExpiredFlows(t.Context()), listErr)
}
