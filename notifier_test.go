package registration_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEmailNotifierSendActivationEmail(t *testing.T) {
	key := "a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0"
	user := registeredUser("peperone@example.com", "peperone")
	profile := &registration.RegistrationProfile{
		UserID:        &user.ID,
		ActivationKey: key,
	}
	site := registration.Site{Name: "Peperone", Domain: "peperone.example.com"}

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	notifier, err := registration.NewEmailNotifier("noreply@peperone.example.com", 7,
		registration.WithSender(sender),
		registration.WithNotifierLogger(testLogger{}),
	)
	require.NoError(t, err)

	err = notifier.SendActivationEmail(context.Background(), user, profile, site)
	require.NoError(t, err)

	msg := sender.LastEmail
	assert.Equal(t, "noreply@peperone.example.com", msg.From)
	assert.Equal(t, "peperone@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Peperone")
	assert.Contains(t, msg.Body, key)
	assert.Contains(t, msg.Body, "7")
	assert.Contains(t, msg.Body, "peperone.example.com")
}

func TestEmailNotifierSubjectStaysOnOneLine(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	notifier, err := registration.NewEmailNotifier("noreply@example.com", 7,
		registration.WithSender(sender),
		registration.WithTemplates(
			"Welcome to\n{{ site.Name }}\n",
			"activate with {{ activation_key }}",
		),
	)
	require.NoError(t, err)

	user := registeredUser("peperone@example.com", "peperone")
	profile := &registration.RegistrationProfile{
		UserID:        &user.ID,
		ActivationKey: "a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0",
	}

	err = notifier.SendActivationEmail(context.Background(), user, profile, registration.Site{
		Name:   "Peperone",
		Domain: "peperone.example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to Peperone", sender.LastEmail.Subject)
}

func TestEmailNotifierTransportFailure(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: connection refused"))

	notifier, err := registration.NewEmailNotifier("noreply@example.com", 7,
		registration.WithSender(sender),
		registration.WithNotifierLogger(testLogger{}),
	)
	require.NoError(t, err)

	user := registeredUser("peperone@example.com", "peperone")
	profile := &registration.RegistrationProfile{
		UserID:        &user.ID,
		ActivationKey: "a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0",
	}

	err = notifier.SendActivationEmail(context.Background(), user, profile, registration.Site{
		Name:   "Peperone",
		Domain: "peperone.example.com",
	})

	require.Error(t, err)
	assert.True(t, registration.IsDispatchError(err))
}
