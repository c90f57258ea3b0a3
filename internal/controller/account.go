package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// Account covers the shopper's own pages: order history and profile.
type Account struct {
	client   *api.Client
	session  *service.SessionStore
	notifier service.Notifier
}

func NewAccount(client *api.Client, session *service.SessionStore, notifier service.Notifier) *Account {
	return &Account{client: client, session: session, notifier: notifier}
}

// MyOrders lists the session user's orders.
func (a *Account) MyOrders(ctx context.Context) ([]entity.Order, error) {
	user := a.session.Current()
	if user == nil {
		return nil, service.ErrNotLoggedIn
	}
	env, err := envelopeOf(a.client.Orders.ForUser(ctx, user.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return nonNilOrders(env.Orders), nil
}

// UpdateProfile saves the changed fields and re-logs the session with the
// user the server returns.
func (a *Account) UpdateProfile(ctx context.Context, upd entity.UserUpdate) (*entity.User, error) {
	user := a.session.Current()
	if user == nil {
		return nil, service.ErrNotLoggedIn
	}
	if err := check(upd); err != nil {
		return nil, err
	}

	env, err := envelopeOf(a.client.Users.Update(ctx, user.ID, upd))
	if err != nil {
		slog.Error("Failed to update profile", "user_id", user.ID, "err", err)
		notify(a.notifier, service.Failure("Update Failed", api.Message(err, "Failed to update profile")))
		return nil, err
	}

	updated := env.User
	if updated == nil {
		merged := *user
		if upd.Username != "" {
			merged.Username = upd.Username
		}
		if upd.Email != "" {
			merged.Email = upd.Email
		}
		if upd.Contact != "" {
			merged.Contact = upd.Contact
		}
		updated = &merged
	}
	if err := a.session.Login(ctx, *updated); err != nil {
		slog.Warn("Session not persisted", "user_id", updated.ID, "err", err)
	}
	notify(a.notifier, service.Info("Profile Updated", "Your profile has been updated successfully."))
	return updated, nil
}

// ContactForm is the public contact page form.
type ContactForm struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

// Contact acknowledges a contact message. There is no backend endpoint for
// it; the message is only logged.
func (a *Account) Contact(ctx context.Context, form ContactForm) error {
	if err := check(form); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Contact message", "email", form.Email, "subject", form.Subject)
	notify(a.notifier, service.Info("Message Sent", "Thank you for contacting us! We'll get back to you soon."))
	return nil
}
