package usecase_test

import (
	"context"
	"testing"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type AddrRepoMock struct{ mock.Mock }

func (m *AddrRepoMock) Create(ctx context.Context, address model.Address) (model.Address, error) {
	args := m.Called(ctx, address)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *AddrRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Address)
	return list, args.Error(1)
}

func (m *AddrRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *AddrRepoMock) Update(ctx context.Context, address model.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *AddrRepoMock) Delete(ctx context.Context, addressID int64) error {
	args := m.Called(ctx, addressID)
	return args.Error(0)
}

func validAddressInput() usecase.AddressInput {
	return usecase.AddressInput{
		PostalCode: "150-0001",
		Prefecture: "Tokyo",
		City:       "Shibuya",
		Line1:      "1-2-3",
		Name:       "Taro",
	}
}

func TestAddressCreate_Validation(t *testing.T) {
	uc := usecase.NewAddressUsecase(new(AddrRepoMock))

	in := validAddressInput()
	in.PostalCode = "  "
	_, err := uc.Create(context.Background(), 1, in)
	assertErrContains(t, err, "postal_code required")
}

func TestAddressCreate_Success_Trims(t *testing.T) {
	addrRepo := new(AddrRepoMock)
	uc := usecase.NewAddressUsecase(addrRepo)

	in := validAddressInput()
	in.City = " Shibuya "
	addrRepo.On("Create", mock.Anything, mock.MatchedBy(func(a model.Address) bool {
		return a.UserID == 1 && a.City == "Shibuya"
	})).Return(model.Address{ID: 9, UserID: 1, City: "Shibuya"}, nil)

	out, err := uc.Create(context.Background(), 1, in)
	assert.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)

	addrRepo.AssertExpectations(t)
}

func TestAddressUpdate_OtherUsers_LooksNotFound(t *testing.T) {
	addrRepo := new(AddrRepoMock)
	uc := usecase.NewAddressUsecase(addrRepo)

	addrRepo.On("FindByID", mock.Anything, int64(9)).Return(model.Address{ID: 9, UserID: 2}, nil)

	_, err := uc.Update(context.Background(), 1, 9, validAddressInput())
	assertErrContains(t, err, "not found")

	addrRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAddressDelete_NotFound(t *testing.T) {
	addrRepo := new(AddrRepoMock)
	uc := usecase.NewAddressUsecase(addrRepo)

	addrRepo.On("FindByID", mock.Anything, int64(9)).Return(model.Address{}, repo.ErrNotFound)

	err := uc.Delete(context.Background(), 1, 9)
	assertErrContains(t, err, "not found")
}

func TestAddressDelete_Success(t *testing.T) {
	addrRepo := new(AddrRepoMock)
	uc := usecase.NewAddressUsecase(addrRepo)

	addrRepo.On("FindByID", mock.Anything, int64(9)).Return(model.Address{ID: 9, UserID: 1}, nil)
	addrRepo.On("Delete", mock.Anything, int64(9)).Return(nil)

	err := uc.Delete(context.Background(), 1, 9)
	assert.NoError(t, err)

	addrRepo.AssertExpectations(t)
}
