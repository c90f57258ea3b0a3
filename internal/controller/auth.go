package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/api"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

var errNoUserInResponse = errors.New("response carried no user")

// Auth drives registration, login and logout.
type Auth struct {
	client   *api.Client
	session  *service.SessionStore
	notifier service.Notifier
}

func NewAuth(client *api.Client, session *service.SessionStore, notifier service.Notifier) *Auth {
	return &Auth{client: client, session: session, notifier: notifier}
}

// Register creates an account. It does not log the new user in.
func (a *Auth) Register(ctx context.Context, reg entity.Registration) (*entity.User, error) {
	if err := check(reg); err != nil {
		return nil, err
	}
	env, err := envelopeOf(a.client.Auth.Register(ctx, reg))
	if err != nil {
		slog.Error("Registration failed", "email", reg.Email, "err", err)
		notify(a.notifier, service.Failure("Registration Failed", api.Message(err, "Failed to create account")))
		return nil, err
	}
	notify(a.notifier, service.Info("Registration Successful", "Your account has been created. Please login."))
	return env.User, nil
}

// Login authenticates against the API and replaces the session with the
// returned user.
func (a *Auth) Login(ctx context.Context, creds entity.Credentials) (*entity.User, error) {
	if err := check(creds); err != nil {
		return nil, err
	}
	env, err := envelopeOf(a.client.Auth.Login(ctx, creds))
	if err == nil && env.User == nil {
		err = errNoUserInResponse
	}
	if err != nil {
		slog.Error("Login failed", "email", creds.Email, "err", err)
		notify(a.notifier, service.Failure("Login Failed", api.Message(err, "Invalid email or password")))
		return nil, err
	}

	// A persistence failure still leaves the in-memory session in place.
	if err := a.session.Login(ctx, *env.User); err != nil {
		slog.Warn("Session not persisted", "user_id", env.User.ID, "err", err)
	}
	notify(a.notifier, service.Info("Login Successful", "Welcome back, "+env.User.Username+"!"))
	return env.User, nil
}

func (a *Auth) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		slog.Warn("Persisted session not cleared", "err", err)
	}
	notify(a.notifier, service.Info("Logged Out", "You have been logged out"))
	return nil
}

// Current returns the session user, or nil.
func (a *Auth) Current() *entity.User {
	return a.session.Current()
}
