package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/modubang/notify-api/internal/core"
	"github.com/modubang/notify-api/internal/domain/model"
	"github.com/modubang/notify-api/internal/mocks"
)

func strPtr(s string) *string { return &s }

func customer(id, name, phone string) model.Recipient {
	return model.Recipient{
		ID:                 id,
		Type:               model.TargetTypeCustomer,
		DisplayName:        name,
		ContactAddress:     phone,
		StatusAtResolution: "active",
	}
}

func TestResolverExplicitIDsTakePrecedence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockRecipientDirectory(ctrl)
	dir.EXPECT().
		Resolve(gomock.Any(), core.RecipientQuery{
			TargetType: model.TargetTypeCustomer,
			IDs:        []string{"c-2", "c-1"},
		}).
		Return([]model.Recipient{
			customer("c-1", "Kim", "010-1111-2222"),
			customer("c-2", "Lee", "010-3333-4444"),
		}, nil)

	resolver := MustNewRecipientResolver(ResolverOptions{Directory: dir})

	got, err := resolver.Resolve(context.Background(), &model.CreateDispatchRequest{
		TargetType:   model.TargetTypeCustomer,
		TargetIDs:    []string{"c-2", "c-1"},
		TargetFilter: strPtr("active"), // ignored when IDs are present
		Message:      "hello",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// result follows the request's ID order, not directory order
	assert.Equal(t, "c-2", got[0].ID)
	assert.Equal(t, "c-1", got[1].ID)
}

func TestResolverUnknownIDsSilentlyDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockRecipientDirectory(ctrl)
	dir.EXPECT().
		Resolve(gomock.Any(), gomock.Any()).
		Return([]model.Recipient{customer("c-1", "Kim", "010-1111-2222")}, nil)

	resolver := MustNewRecipientResolver(ResolverOptions{Directory: dir})

	got, err := resolver.Resolve(context.Background(), &model.CreateDispatchRequest{
		TargetType: model.TargetTypeCustomer,
		TargetIDs:  []string{"c-1", "ghost-1", "ghost-2"},
		Message:    "hello",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-1", got[0].ID)
}

func TestResolverDedupeKeepsFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockRecipientDirectory(ctrl)
	dir.EXPECT().
		Resolve(gomock.Any(), gomock.Any()).
		Return([]model.Recipient{
			customer("c-1", "Kim", "010-1111-2222"),
			customer("c-2", "Lee", "010-3333-4444"),
		}, nil)

	resolver := MustNewRecipientResolver(ResolverOptions{Directory: dir})

	got, err := resolver.Resolve(context.Background(), &model.CreateDispatchRequest{
		TargetType: model.TargetTypeCustomer,
		TargetIDs:  []string{"c-1", "c-2", "c-1"},
		Message:    "hello",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c-1", got[0].ID)
	assert.Equal(t, "c-2", got[1].ID)
}

func TestResolverDropsEmptyContacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockRecipientDirectory(ctrl)
	dir.EXPECT().
		Resolve(gomock.Any(), core.RecipientQuery{
			TargetType:   model.TargetTypePartner,
			StatusFilter: strPtr("active"),
		}).
		Return([]model.Recipient{
			{ID: "p-1", Type: model.TargetTypePartner, DisplayName: "Shop A", ContactAddress: ""},
			{ID: "p-2", Type: model.TargetTypePartner, DisplayName: "Shop B", ContactAddress: "010-5555-6666"},
		}, nil)

	resolver := MustNewRecipientResolver(ResolverOptions{Directory: dir})

	got, err := resolver.Resolve(context.Background(), &model.CreateDispatchRequest{
		TargetType:   model.TargetTypePartner,
		TargetFilter: strPtr("active"),
		Message:      "hello",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p-2", got[0].ID)
}

func TestResolverDirectoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := mocks.NewMockRecipientDirectory(ctrl)
	dir.EXPECT().
		Resolve(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	resolver := MustNewRecipientResolver(ResolverOptions{Directory: dir})

	_, err := resolver.Resolve(context.Background(), &model.CreateDispatchRequest{
		TargetType: model.TargetTypeCustomer,
		Message:    "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve recipients")
}

func TestNewRecipientResolverRequiresDirectory(t *testing.T) {
	_, err := NewRecipientResolver(ResolverOptions{})
	require.Error(t, err)
}
