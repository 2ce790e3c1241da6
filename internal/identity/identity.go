// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

// Package identity supplies the stable user identifier that scopes remote
// calls. When no session exists (fully offline, never-authenticated device)
// the engine must still accept and queue local mutations, so a durable
// locally-generated placeholder identity stands in until a real session is
// established.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/internal/store"
)

const (
	sessionKey     = "meta/session"
	placeholderKey = "meta/placeholder_identity"
)

// Session identifies the user the engine syncs on behalf of.
type Session struct {
	// UserID scopes remote calls. Either the subject of the session token
	// or a locally-generated placeholder.
	UserID string `json:"user_id"`

	// Token is the raw session token, empty for a placeholder session.
	Token string `json:"token,omitempty"`

	// Placeholder is true while no real session has ever been established.
	Placeholder bool `json:"placeholder"`
}

// Provider hands out the current session.
type Provider interface {
	Current(ctx context.Context) (Session, error)
}

// Manager is the default Provider. Real sessions are persisted so a restart
// does not lose them; so is the placeholder, so records created offline stay
// scoped to one identity across launches.
type Manager struct {
	store  store.LocalStore
	logger *logger.Logger

	mu      sync.Mutex
	current *Session
}

func NewManager(local store.LocalStore, log *logger.Logger) *Manager {
	return &Manager{store: local, logger: log}
}

// Current implements Provider. Resolution order: in-memory session,
// persisted session, persisted placeholder, fresh placeholder.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return *m.current, nil
	}

	if sess, err := m.loadSession(ctx, sessionKey); err == nil {
		m.current = &sess
		return sess, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	if sess, err := m.loadSession(ctx, placeholderKey); err == nil {
		m.current = &sess
		return sess, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, fmt.Errorf("load placeholder identity: %w", err)
	}

	sess := Session{UserID: "offline-" + uuid.NewString(), Placeholder: true}
	if err := m.saveSession(ctx, placeholderKey, sess); err != nil {
		return Session{}, fmt.Errorf("persist placeholder identity: %w", err)
	}

	m.logger.Info().Str("user_id", sess.UserID).Msg("placeholder identity created")
	m.current = &sess
	return sess, nil
}

// SetSessionToken installs a real session from token, whose subject claim
// carries the user id. Records and queued operations created under a
// placeholder identity are adopted wholesale: on a single-user device the
// placeholder is an alias of the not-yet-known user, so nothing is rewritten.
// Queued operations are identity-agnostic until push time and from now on
// push under the real id. The placeholder is cleared so it is never reused.
func (m *Manager) SetSessionToken(ctx context.Context, token string) (Session, error) {
	userID, err := subjectFromJWT(token)
	if err != nil {
		return Session{}, fmt.Errorf("parse session token: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := Session{UserID: userID, Token: token}
	if err = m.saveSession(ctx, sessionKey, sess); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	if err = m.store.Remove(ctx, placeholderKey); err != nil {
		return Session{}, fmt.Errorf("clear placeholder identity: %w", err)
	}

	m.logger.Info().Str("user_id", userID).Msg("session established")
	m.current = &sess
	return sess, nil
}

// ClearSession drops the real session (logout). The next Current call falls
// back to a fresh placeholder identity.
func (m *Manager) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Remove(ctx, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.current = nil
	return nil
}

func (m *Manager) loadSession(ctx context.Context, key string) (Session, error) {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		return Session{}, err
	}

	var sess Session
	if err = json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session at %s: %w", key, err)
	}
	return sess, nil
}

func (m *Manager) saveSession(ctx context.Context, key string, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.store.Set(ctx, key, raw)
}

// subjectFromJWT extracts the subject claim without verifying the signature.
// Verification is the server's job; the engine only needs the identifier the
// server already vouched for by issuing the token.
func subjectFromJWT(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("empty token subject")
	}

	return sub, nil
}
