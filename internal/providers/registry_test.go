package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/common/errors"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Enabled(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Credentials(ctx context.Context, id string) (Credentials, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Credentials), args.Error(1)
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry(testClient(), &mockStore{})

	assert.Equal(t, []string{"convertkit", "mailchimp", "mailerlite"}, r.IDs())
	assert.Equal(t, "MailerLite", r.Name("mailerlite"))
	assert.Empty(t, r.Name("aweber"))
}

func TestRegistryGet(t *testing.T) {
	store := &mockStore{}
	store.On("Credentials", mock.Anything, "mailchimp").Return(Credentials{APIKey: "k-us2"}, nil)
	r := NewRegistry(testClient(), store)
	ctx := context.Background()

	p, err := r.Get(ctx, "mailchimp")
	require.NoError(t, err)
	assert.Equal(t, "mailchimp", p.ID())
	assert.Equal(t, "https://us2.api.mailchimp.com/3.0/", p.(*MailChimp).baseURL)

	r.SetBaseURL("mailchimp", "http://localhost:9999")
	p, err = r.Get(ctx, "mailchimp")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", p.(*MailChimp).baseURL)

	_, err = r.Get(ctx, "aweber")
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestRegistryGetEnabled(t *testing.T) {
	store := &mockStore{}
	store.On("Enabled", mock.Anything, "mailerlite").Return(true, nil)
	store.On("Enabled", mock.Anything, "convertkit").Return(false, nil)
	store.On("Credentials", mock.Anything, "mailerlite").Return(Credentials{APIKey: "k"}, nil)
	r := NewRegistry(testClient(), store)
	ctx := context.Background()

	p, ok, err := r.GetEnabled(ctx, "mailerlite")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "MailerLite", p.Name())

	_, ok, err = r.GetEnabled(ctx, "convertkit")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = r.GetEnabled(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	store.AssertNotCalled(t, "Credentials", mock.Anything, "convertkit")
}
