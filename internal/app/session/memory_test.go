package session

import (
	"context"
	"testing"
	"time"

	"bidmarket/internal/app/model"
	storagemock "bidmarket/internal/app/storage/mock"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateAndRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	u := &model.User{ID: uuid.New(), Name: "alice", Role: model.RoleUser}

	users := storagemock.NewMockUserRepository(ctrl)
	users.EXPECT().Read(gomock.Any(), u.ID).Return(u, nil)

	m := NewMemory("test-secret", users)
	ctx := context.Background()

	token, err := m.Create(ctx, u)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := m.Read(ctx, token)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestMemory_Read_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := storagemock.NewMockUserRepository(ctrl)
	m := NewMemory("test-secret", users)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Read(context.Background(), tc.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestMemory_Read_WrongKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	u := &model.User{ID: uuid.New(), Name: "bob", Role: model.RoleUser}
	users := storagemock.NewMockUserRepository(ctrl)

	issued := NewMemory("secret-a", users)
	verifier := NewMemory("secret-b", users)

	token, err := issued.Create(context.Background(), u)
	require.NoError(t, err)

	_, err = verifier.Read(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemory_Read_Expired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	u := &model.User{ID: uuid.New(), Name: "carol", Role: model.RoleUser}
	users := storagemock.NewMockUserRepository(ctrl)

	m := NewMemory("test-secret", users, WithTokenLifetime(time.Millisecond))

	token, err := m.Create(context.Background(), u)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = m.Read(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
