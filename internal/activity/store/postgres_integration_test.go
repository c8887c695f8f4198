//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"opsdesk/internal/activity"
	"opsdesk/internal/activity/store"
	"opsdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "activity_logs"))
}

func (s *PostgresStoreSuite) newEntry(userID uuid.UUID, action string, at time.Time) activity.Entry {
	return activity.Entry{
		ID:           uuid.New(),
		UserID:       userID,
		Action:       action,
		Details:      "did a thing",
		Metadata:     map[string]any{"client_ip": "203.0.113.9", "device": "Chrome on Mac OS X"},
		CreatedAt:    at,
		UserEmail:    "jane.doe@example.com",
		UserFullName: "Jane Doe",
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	e := s.newEntry(uuid.New(), activity.ActionLogin, now)
	s.Require().NoError(s.store.Append(ctx, e))

	got, err := s.store.List(ctx, activity.Filter{})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(e.ID, got[0].ID)
	s.Equal("Jane Doe", got[0].UserFullName)
	s.Equal("203.0.113.9", got[0].Metadata["client_ip"])
	s.True(now.Equal(got[0].CreatedAt))
}

func (s *PostgresStoreSuite) TestNilMetadataRoundTrips() {
	ctx := context.Background()
	e := s.newEntry(uuid.New(), activity.ActionLogout, time.Now().UTC())
	e.Metadata = nil
	s.Require().NoError(s.store.Append(ctx, e))

	got, err := s.store.List(ctx, activity.Filter{})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Nil(got[0].Metadata)
}

func (s *PostgresStoreSuite) TestListFiltersAndOrders() {
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()
	base := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.Append(ctx, s.newEntry(alice, activity.ActionLogin, base.Add(-time.Hour))))
	s.Require().NoError(s.store.Append(ctx, s.newEntry(alice, activity.ActionDocumentCreated, base)))
	s.Require().NoError(s.store.Append(ctx, s.newEntry(bob, activity.ActionLogin, base.Add(-time.Minute))))

	s.Run("newest first", func() {
		got, err := s.store.List(ctx, activity.Filter{})
		s.Require().NoError(err)
		s.Require().Len(got, 3)
		s.Equal(activity.ActionDocumentCreated, got[0].Action)
	})

	s.Run("by user", func() {
		got, err := s.store.List(ctx, activity.Filter{UserID: alice})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("by action with pagination", func() {
		got, err := s.store.List(ctx, activity.Filter{Action: activity.ActionLogin, Limit: 1, Offset: 1})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(alice, got[0].UserID)
	})
}
