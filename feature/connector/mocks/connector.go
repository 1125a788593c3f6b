// Package mocks provides a testify mock of the connector interface for the
// reconciliation tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"guildsync/feature/connector"
)

type Connector struct {
	mock.Mock
}

func (m *Connector) GetAllUsersWithRoles(ctx context.Context) (map[int64][]string, error) {
	args := m.Called(ctx)
	var users map[int64][]string
	if args.Get(0) != nil {
		users = args.Get(0).(map[int64][]string)
	}
	return users, args.Error(1)
}

func (m *Connector) GetRolesForUser(ctx context.Context, userID int64) ([]string, bool, error) {
	args := m.Called(ctx, userID)
	var roles []string
	if args.Get(0) != nil {
		roles = args.Get(0).([]string)
	}
	return roles, args.Bool(1), args.Error(2)
}

func (m *Connector) ChangeRoles(ctx context.Context, changes map[int64]connector.RoleChange) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func (m *Connector) SetCharacterNames(ctx context.Context, userID int64, names []string) error {
	args := m.Called(ctx, userID, names)
	return args.Error(0)
}

func (m *Connector) DeleteInactiveUsers(ctx context.Context, userIDs []int64, reason string) (int, error) {
	args := m.Called(ctx, userIDs, reason)
	return args.Int(0), args.Error(1)
}

func (m *Connector) DeleteUsersAfterInactiveDays() int {
	return m.Called().Int(0)
}

func (m *Connector) Close() error {
	return m.Called().Error(0)
}
