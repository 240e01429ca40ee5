package matcher

import (
	"context"
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/db/dbtest"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

var lagosIsland = types.GeoPoint{Latitude: 6.4541, Longitude: 3.3947}

func TestHaversine(t *testing.T) {
	require.InDelta(t, 111.195, Haversine(types.GeoPoint{}, types.GeoPoint{Longitude: 1}), 0.001)
	require.InDelta(t, 0, Haversine(lagosIsland, lagosIsland), 1e-9)
	// Lagos Island to Ikeja
	require.InDelta(t, 17.0, Haversine(lagosIsland, types.GeoPoint{Latitude: 6.6018, Longitude: 3.3515}), 0.5)
}

func profile(userID string, lat, lng, radius float64) *models.ArtisanProfile {
	return &models.ArtisanProfile{
		ID: tool.GenerateUUIDV7(), UserID: userID,
		Latitude: lat, Longitude: lng, ServiceRadiusKM: radius, IsAvailable: true,
	}
}

func TestRank_RadiusAndOrderProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	profiles := make([]*models.ArtisanProfile, 0, 300)
	for i := 0; i < 300; i++ {
		profiles = append(profiles, profile(
			tool.GenerateUUIDV7(),
			lagosIsland.Latitude+(r.Float64()-0.5),
			lagosIsland.Longitude+(r.Float64()-0.5),
			r.Float64()*60,
		))
	}

	got := Rank(lagosIsland, profiles, 0)
	require.NotEmpty(t, got)
	for i, c := range got {
		require.LessOrEqual(t, Haversine(lagosIsland, c.Profile.Location()), c.Profile.ServiceRadiusKM)
		if i > 0 {
			require.LessOrEqual(t, got[i-1].DistanceKM, c.DistanceKM)
		}
	}

	expected := lo.CountBy(profiles, func(p *models.ArtisanProfile) bool {
		return Haversine(lagosIsland, p.Location()) <= p.ServiceRadiusKM
	})
	require.Len(t, got, expected)
	require.Len(t, Rank(lagosIsland, profiles, 5), lo.Min([]int{5, expected}))
}

func TestRank_UsesArtisanOwnRadius(t *testing.T) {
	near := profile("near-small-radius", 6.50, 3.3947, 2)  // ~5km away, covers 2km
	far := profile("far-large-radius", 6.60, 3.3947, 50)   // ~16km away, covers 50km
	got := Rank(lagosIsland, []*models.ArtisanProfile{near, far}, 10)
	require.Len(t, got, 1)
	require.Equal(t, "far-large-radius", got[0].Profile.UserID)
}

func TestRank_TiesBrokenByUserID(t *testing.T) {
	a := profile("b-user", 6.5, 3.4, 50)
	b := profile("a-user", 6.5, 3.4, 50)
	got := Rank(lagosIsland, []*models.ArtisanProfile{a, b}, 10)
	require.Equal(t, []string{"a-user", "b-user"}, []string{got[0].Profile.UserID, got[1].Profile.UserID})
}

func TestFindNearby(t *testing.T) {
	db := dbtest.New(t)
	svc := New(db, dbtest.Logger())
	ctx := context.Background()

	plumbing := "plumbing"
	electrical := "electrical"
	p1 := profile("u1", 6.46, 3.39, 10)
	p1.CategoryID = &plumbing
	p2 := profile("u2", 6.47, 3.40, 10)
	p2.CategoryID = &electrical
	p3 := profile("u3", 6.455, 3.395, 10)
	p3.CategoryID = &plumbing
	p3.IsAvailable = false
	for _, p := range []*models.ArtisanProfile{p1, p2, p3} {
		require.NoError(t, db.Create(p).Error)
	}

	all, err := svc.FindNearby(ctx, NearbyQuery{Point: lagosIsland})
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u2"}, lo.Map(all, func(c *Candidate, _ int) string { return c.Profile.UserID }))

	onlyPlumbing, err := svc.FindNearby(ctx, NearbyQuery{Point: lagosIsland, CategoryID: &plumbing})
	require.NoError(t, err)
	require.Len(t, onlyPlumbing, 1)
	require.Equal(t, "u1", onlyPlumbing[0].Profile.UserID)

	_, err = svc.FindNearby(ctx, NearbyQuery{Point: types.GeoPoint{Latitude: 91}})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestEligible(t *testing.T) {
	db := dbtest.New(t)
	svc := New(db, dbtest.Logger())
	ctx := context.Background()

	p := profile("u1", 6.46, 3.39, 5)
	require.NoError(t, db.Create(p).Error)

	require.NoError(t, svc.Eligible(ctx, nil, "u1", lagosIsland))
	require.ErrorIs(t, svc.Eligible(ctx, nil, "u1", types.GeoPoint{Latitude: 6.6, Longitude: 3.35}), apperr.ErrValidation)
	require.ErrorIs(t, svc.Eligible(ctx, nil, "missing", lagosIsland), apperr.ErrNotFound)

	require.NoError(t, db.Model(p).Update("is_available", false).Error)
	require.ErrorIs(t, svc.Eligible(ctx, nil, "u1", lagosIsland), apperr.ErrValidation)
}
