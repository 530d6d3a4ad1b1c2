package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamsync/teamsync/internal/membership"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/validator"
)

func TestCreateInviteDefaults(t *testing.T) {
	f := newServiceFixture(t)
	team, owner := f.createTeam(t, membership.TierPro)

	invite, err := f.registry.CreateInvite(context.Background(), CreateInviteInput{
		TeamID:    team.ID,
		Role:      membership.RolePlayer,
		CreatedBy: owner.ID,
	})
	require.NoError(t, err)

	require.True(t, validator.IsInviteCode(invite.Code), "code %q", invite.Code)
	require.Equal(t, 0, invite.Uses)
	require.Equal(t, 0, invite.MaxUses)
	require.True(t, invite.Active)
	require.Equal(t, f.clock.Now().Add(7*24*time.Hour), invite.ExpiresAt)
}

func TestCreateInviteRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierPro)
	ctx := context.Background()

	created, err := f.registry.CreateInvite(ctx, CreateInviteInput{
		TeamID:    team.ID,
		Role:      membership.RoleAdmin,
		CreatedBy: "u1",
		ExpiresIn: 86_400_000 * time.Millisecond,
	})
	require.NoError(t, err)

	got, found, err := f.registry.GetInvite(ctx, created.Code)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, created.Code, got.Code)
	require.Equal(t, membership.RoleAdmin, got.Role)
	require.Equal(t, 0, got.Uses)
	require.True(t, got.Active)
	require.Equal(t, "u1", got.CreatedBy)
}

func TestCreateInviteRejectsBadInput(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	_, err := f.registry.CreateInvite(ctx, CreateInviteInput{Role: membership.RolePlayer})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RoleCoach})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer, MaxUses: -1})
	require.True(t, apperrors.IsValidation(err))

	_, err = f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer, ExpiresIn: MaxInviteExpiry + time.Second})
	require.True(t, apperrors.IsValidation(err))
}

func TestCreateInviteRetriesOnCodeCollision(t *testing.T) {
	codes := []string{"AAAA1111", "AAAA1111", "BBBB2222"}
	calls := 0
	f := newServiceFixture(t, WithCodeSource(func() (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	}))
	team, _ := f.createTeam(t, membership.TierClub)
	ctx := context.Background()

	first, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)
	require.Equal(t, "AAAA1111", first.Code)

	second, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)
	require.Equal(t, "BBBB2222", second.Code)
	require.Equal(t, 3, calls)
}

func TestCreateInviteGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	f := newServiceFixture(t,
		WithCodeAttempts(3),
		WithCodeSource(func() (string, error) {
			calls++
			return "SAME0000", nil
		}),
	)
	team, _ := f.createTeam(t, membership.TierClub)
	ctx := context.Background()

	_, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)

	_, err = f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.Error(t, err)
	require.Equal(t, 4, calls)
}

func TestCreateInviteSurfacesGeneratorFailure(t *testing.T) {
	f := newServiceFixture(t, WithCodeSource(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))
	team, _ := f.createTeam(t, membership.TierFree)

	_, err := f.registry.CreateInvite(context.Background(), CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.ErrorContains(t, err, "entropy exhausted")
}

func TestDeactivateInviteIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	invite, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)

	require.NoError(t, f.registry.DeactivateInvite(ctx, invite.ID))
	require.False(t, f.reloadInvite(t, invite.ID).Active)

	require.NoError(t, f.registry.DeactivateInvite(ctx, invite.ID))
	require.False(t, f.reloadInvite(t, invite.ID).Active)

	require.NoError(t, f.registry.DeactivateInvite(ctx, "no-such-invite"))

	used, err := f.registry.UseInvite(ctx, invite.Code)
	require.NoError(t, err)
	require.False(t, used)
}

func TestUseInviteOnAlreadyExpiredInvite(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	invite, err := f.registry.CreateInvite(ctx, CreateInviteInput{
		TeamID:    team.ID,
		Role:      membership.RolePlayer,
		ExpiresIn: -time.Millisecond,
	})
	require.NoError(t, err)

	used, err := f.registry.UseInvite(ctx, invite.Code)
	require.NoError(t, err)
	require.False(t, used)

	stored := f.reloadInvite(t, invite.ID)
	require.False(t, stored.Active)
	require.Equal(t, 0, stored.Uses)
}

func TestUseInviteExpiresLazilyWhenClockPassesExpiry(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	invite, err := f.registry.CreateInvite(ctx, CreateInviteInput{
		TeamID:    team.ID,
		Role:      membership.RolePlayer,
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)

	used, err := f.registry.UseInvite(ctx, invite.Code)
	require.NoError(t, err)
	require.True(t, used)

	f.clock.Advance(time.Hour)
	used, err = f.registry.UseInvite(ctx, invite.Code)
	require.NoError(t, err)
	require.False(t, used)

	stored := f.reloadInvite(t, invite.ID)
	require.False(t, stored.Active)
	require.Equal(t, 1, stored.Uses)
}

func TestUseInviteWithoutCeilingIsUnbounded(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	invite, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)

	const n = 40
	for i := 0; i < n; i++ {
		used, err := f.registry.UseInvite(ctx, invite.Code)
		require.NoError(t, err)
		require.True(t, used, "use %d", i+1)
	}
	require.Equal(t, n, f.reloadInvite(t, invite.ID).Uses)
}

func TestUseInviteHonoursMaxUses(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	invite, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer, MaxUses: 2})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		used, err := f.registry.UseInvite(ctx, invite.Code)
		require.NoError(t, err)
		require.True(t, used)
	}

	used, err := f.registry.UseInvite(ctx, invite.Code)
	require.NoError(t, err)
	require.False(t, used)

	stored := f.reloadInvite(t, invite.ID)
	require.Equal(t, 2, stored.Uses)
	require.True(t, stored.Active)

	_, err = f.registry.Inspect(ctx, invite.Code)
	require.ErrorIs(t, err, ErrInviteExhausted)
}

func TestUseInviteUnknownCode(t *testing.T) {
	f := newServiceFixture(t)

	used, err := f.registry.UseInvite(context.Background(), "ZZZZ9999")
	require.NoError(t, err)
	require.False(t, used)

	_, found, err := f.registry.GetInvite(context.Background(), "ZZZZ9999")
	require.NoError(t, err)
	require.False(t, found)
}

func TestInspectClassifiesInvites(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	valid, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)
	revoked, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)
	require.NoError(t, f.registry.DeactivateInvite(ctx, revoked.ID))
	expired, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer, ExpiresIn: -time.Second})
	require.NoError(t, err)

	got, err := f.registry.Inspect(ctx, valid.Code)
	require.NoError(t, err)
	require.Equal(t, valid.ID, got.ID)

	_, err = f.registry.Inspect(ctx, revoked.Code)
	require.ErrorIs(t, err, ErrInviteDeactivated)

	_, err = f.registry.Inspect(ctx, expired.Code)
	require.ErrorIs(t, err, ErrInviteExpired)
	require.False(t, f.reloadInvite(t, expired.ID).Active)

	_, err = f.registry.Inspect(ctx, "NOPE0000")
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestGetActiveInvitesFiltersExpiredAndDeactivated(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	other, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	_, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer, ExpiresIn: -time.Minute})
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	revoked, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer})
	require.NoError(t, err)
	require.NoError(t, f.registry.DeactivateInvite(ctx, revoked.ID))
	f.clock.Advance(time.Second)

	valid, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RoleAdmin})
	require.NoError(t, err)

	_, err = f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: other.ID, Role: membership.RolePlayer})
	require.NoError(t, err)

	active, err := f.registry.GetActiveInvites(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, valid.ID, active[0].ID)

	all, err := f.registry.ListInvites(ctx, team.ID, InviteStatusAll)
	require.NoError(t, err)
	require.Len(t, all, 3)

	expired, err := f.registry.ListInvites(ctx, team.ID, InviteStatusExpired)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	inactive, err := f.registry.ListInvites(ctx, team.ID, InviteStatusInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	require.Equal(t, revoked.ID, inactive[0].ID)

	_, err = f.registry.ListInvites(ctx, team.ID, InviteStatus("stale"))
	require.True(t, apperrors.IsValidation(err))
}

func TestSweepAndPurgeInvites(t *testing.T) {
	f := newServiceFixture(t)
	team, _ := f.createTeam(t, membership.TierFree)
	ctx := context.Background()

	expiring, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer, ExpiresIn: time.Hour})
	require.NoError(t, err)
	keeper, err := f.registry.CreateInvite(ctx, CreateInviteInput{TeamID: team.ID, Role: membership.RolePlayer, ExpiresIn: 90 * 24 * time.Hour})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	swept, err := f.registry.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), swept)
	require.False(t, f.reloadInvite(t, expiring.ID).Active)

	swept, err = f.registry.SweepExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, swept)

	purged, err := f.registry.PurgeInactive(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, purged)

	f.clock.Advance(31 * 24 * time.Hour)
	purged, err = f.registry.PurgeInactive(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)

	all, err := f.registry.ListInvites(ctx, team.ID, InviteStatusAll)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, keeper.ID, all[0].ID)

	_, err = f.registry.PurgeInactive(ctx, 0)
	require.Error(t, err)
}
