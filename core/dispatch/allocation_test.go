package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxidispatch/core/model"
)

type allocFixture struct {
	env    *fakeEnv
	roster *Roster
	ledger *MemoryLedger
	engine *AllocationEngine
}

func newAllocFixture(agents ...model.Agent) *allocFixture {
	env := newFakeEnv()
	roster := NewRoster(agents)
	ledger := NewMemoryLedger()
	return &allocFixture{env: env, roster: roster, ledger: ledger, engine: NewAllocationEngine(env, roster, ledger)}
}

func (f *allocFixture) awards(id model.AgentID, n int) {
	for i := 0; i < n; i++ {
		f.ledger.RecordAward(id)
	}
}

func openFare(origin, dest model.Coord, bidders ...model.AgentID) *model.FareRequest {
	fare := model.NewFareRequest(model.FareKey{Origin: origin, Destination: dest, CallTime: 1})
	fare.Price = 50
	fare.Bidders = append(fare.Bidders, bidders...)
	return fare
}

var (
	origin = model.Coord{X: 5, Y: 5}
	dest   = model.Coord{X: 9, Y: 5}
)

func requireAward(t *testing.T, d Decision, agent model.AgentID, reason string) {
	t.Helper()
	require.NotNil(t, d.Award, "expected an award, got deferral %+v", d.Deferral)
	assert.Equal(t, agent, d.Award.Agent)
	assert.Equal(t, reason, d.Award.Reason)
}

func TestAllocate_SingleBidder(t *testing.T) {
	f := newAllocFixture(taxi("x", 1, model.Coord{X: 0, Y: 0}))
	fare := openFare(origin, dest, "x")

	requireAward(t, f.engine.Allocate(fare), "x", ReasonSingleBidder)
	assert.Equal(t, model.AgentID("x"), fare.Agent)
	n, ok := f.ledger.Awards("x")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestAllocate_FirstTimerBeatsCloserVeteran(t *testing.T) {
	f := newAllocFixture(
		taxi("x", 1, model.Coord{X: 0, Y: 0}), // far
		taxi("y", 2, model.Coord{X: 5, Y: 4}), // next to the origin
	)
	f.awards("y", 2)
	fare := openFare(origin, dest, "y", "x")

	requireAward(t, f.engine.Allocate(fare), "x", ReasonFirstTimer)
	n, _ := f.ledger.Awards("x")
	assert.Equal(t, 1, n)
	n, _ = f.ledger.Awards("y")
	assert.Equal(t, 2, n)
}

func TestAllocate_ClosestFirstTimer(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 0, Y: 0}),
		taxi("b", 2, model.Coord{X: 4, Y: 5}),
	)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "a", "b")), "b", ReasonFirstTimer)
}

func TestAllocate_TieBrokenByBidOrder(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 5, Y: 3}),
		taxi("b", 2, model.Coord{X: 5, Y: 7}),
	)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "b", "a")), "b", ReasonFirstTimer)
}

func TestAllocate_EqualVeteransClosestWins(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 0, Y: 0}),
		taxi("b", 2, model.Coord{X: 5, Y: 6}),
	)
	f.awards("a", 1)
	f.awards("b", 1)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "a", "b")), "b", ReasonFewestAwards)
}

func TestAllocate_FewestAwardsBeatsDistance(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 0, Y: 0}),
		taxi("b", 2, model.Coord{X: 5, Y: 6}),
	)
	f.awards("a", 1)
	f.awards("b", 3)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "b", "a")), "a", ReasonFewestAwards)
}

func TestAllocate_ClosestVeteranWhenNoBidderHasFewest(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 0, Y: 0}),
		taxi("b", 2, model.Coord{X: 5, Y: 6}),
		taxi("idle", 3, model.Coord{X: 20, Y: 20}),
	)
	f.awards("a", 2)
	f.awards("b", 3)
	f.awards("idle", 1)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "a", "b")), "b", ReasonClosestVeteran)
}

func TestAllocate_UnknownAgentsInLedgerIgnoredForMinimum(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 0, Y: 0}),
		taxi("b", 2, model.Coord{X: 5, Y: 6}),
	)
	f.awards("a", 1)
	f.awards("b", 2)
	f.ledger.restore("gone", 0)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "a", "b")), "a", ReasonFewestAwards)
}

func TestAllocate_StuckAgentAtOriginDefers(t *testing.T) {
	// "blocker" plans three stops ending at the origin, the same number of
	// ticks bidder "a" needs to get there.
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 5, Y: 2}),
		taxi("blocker", 2, model.Coord{X: 8, Y: 5}, model.Coord{X: 7, Y: 5}, model.Coord{X: 6, Y: 5}, origin),
	)
	fare := openFare(origin, dest, "a")

	d := f.engine.Allocate(fare)
	require.Nil(t, d.Award)
	require.NotNil(t, d.Deferral)
	assert.Equal(t, DeferStuckAgent, d.Deferral.Reason)
	assert.Equal(t, model.AgentID("blocker"), d.Deferral.Blocker)
	assert.False(t, fare.Assigned())
	assert.Empty(t, f.ledger.Snapshot())
}

func TestAllocate_StuckAgentAtDestinationDefers(t *testing.T) {
	// a needs 1 tick to the origin and 4 more to the destination.
	path := []model.Coord{{X: 1}, {X: 2}, {X: 3}, {X: 4}, dest}
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 5, Y: 4}),
		taxi("b", 2, model.Coord{X: 0, Y: 0}),
		taxi("blocker", 3, model.Coord{X: 0, Y: 9}, path...),
	)
	d := f.engine.Allocate(openFare(origin, dest, "a", "b"))
	require.NotNil(t, d.Deferral)
	assert.Equal(t, DeferStuckAgent, d.Deferral.Reason)
}

func TestAllocate_BidderOwnPathDoesNotBlock(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 5, Y: 4}, origin),
	)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "a")), "a", ReasonSingleBidder)
}

func TestAllocate_PathLengthMismatchDoesNotBlock(t *testing.T) {
	f := newAllocFixture(
		taxi("a", 1, model.Coord{X: 5, Y: 2}),
		taxi("other", 2, model.Coord{X: 6, Y: 5}, origin),
	)
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "a")), "a", ReasonSingleBidder)
}

func TestAllocate_UnknownOriginDefers(t *testing.T) {
	f := newAllocFixture(taxi("a", 1, model.Coord{}))
	f.env.missing[origin] = true
	d := f.engine.Allocate(openFare(origin, dest, "a"))
	require.NotNil(t, d.Deferral)
	assert.Equal(t, DeferUnknownOrigin, d.Deferral.Reason)
}

func TestAllocate_UnknownBiddersAreSkipped(t *testing.T) {
	f := newAllocFixture(taxi("a", 1, model.Coord{}))
	d := f.engine.Allocate(openFare(origin, dest, "ghost"))
	require.NotNil(t, d.Deferral)
	assert.Equal(t, DeferNoCandidate, d.Deferral.Reason)

	requireAward(t, f.engine.Allocate(openFare(origin, dest, "ghost", "a")), "a", ReasonSingleBidder)
}

func TestAllocate_AssignedFareIsNeverReassigned(t *testing.T) {
	f := newAllocFixture(taxi("a", 1, model.Coord{}), taxi("b", 2, model.Coord{X: 5, Y: 5}))
	fare := openFare(origin, dest, "a")
	requireAward(t, f.engine.Allocate(fare), "a", ReasonSingleBidder)

	fare.Bidders = append(fare.Bidders, "b")
	d := f.engine.Allocate(fare)
	assert.Nil(t, d.Award)
	assert.Equal(t, model.AgentID("a"), fare.Agent)
	n, _ := f.ledger.Awards("a")
	assert.Equal(t, 1, n)
}

func TestAllocate_UnresolvableBidderLocationRanksLast(t *testing.T) {
	lost := model.Coord{X: 99, Y: 99}
	f := newAllocFixture(taxi("lost", 1, lost), taxi("near", 2, model.Coord{X: 0, Y: 0}))
	f.env.missing[lost] = true
	requireAward(t, f.engine.Allocate(openFare(origin, dest, "lost", "near")), "near", ReasonFirstTimer)
}
