package netplan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/merlya/merlya-core/pkg/netplan"
)

type staticRoutes []netplan.Route

func (s staticRoutes) Routes() []netplan.Route { return s }

func TestPlanDirectWhenReachable(t *testing.T) {
	planner := netplan.NewPlanner(staticRoutes{})
	planner.ProbeTimeout = 10 * time.Millisecond

	called := false
	netplan.WithDialProbe(planner, func(ctx context.Context, addr string, timeout time.Duration) bool {
		called = true
		return true
	})

	decision := planner.Plan(context.Background(), "web-prod-1", "10.0.0.5")

	assert.True(t, called)
	assert.Equal(t, netplan.ModeDirect, decision.Mode)
}

func TestPlanJumpWhenRouteMatches(t *testing.T) {
	routes := staticRoutes{
		{Network: "10.0.0.0/8", Gateway: "bastion-a"},
		{Network: "10.0.1.0/24", Gateway: "bastion-b"}, // more specific, should win
	}
	planner := netplan.NewPlanner(routes)
	planner.ProbeTimeout = 10 * time.Millisecond
	netplan.WithDialProbe(planner, func(ctx context.Context, addr string, timeout time.Duration) bool {
		return false
	})

	decision := planner.Plan(context.Background(), "db-1", "10.0.1.42")

	assert.Equal(t, netplan.ModeJump, decision.Mode)
	assert.Equal(t, "bastion-b", decision.Gateway)
}

func TestPlanDirectFallbackWhenNoRouteMatches(t *testing.T) {
	planner := netplan.NewPlanner(staticRoutes{{Network: "192.168.0.0/16", Gateway: "other"}})
	planner.ProbeTimeout = 10 * time.Millisecond
	netplan.WithDialProbe(planner, func(ctx context.Context, addr string, timeout time.Duration) bool {
		return false
	})

	decision := planner.Plan(context.Background(), "db-1", "10.0.1.42")

	assert.Equal(t, netplan.ModeDirect, decision.Mode)
}
