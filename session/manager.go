// Package session remembers who the user is across restarts and tracks the
// current session.
//
// The Manager owns a request.User that reflects the remembered identity
// (userId, email, push token) and the session id. The session id is present
// while the host application is in the foreground and cleared while it is in
// the background.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/common"
	"brein.evalgo.org/engine"
	"brein.evalgo.org/request"
	"brein.evalgo.org/result"
	"brein.evalgo.org/store"
)

// Keys under which user defaults are persisted.
const (
	KeyPushDeviceRegistration = "breinPushDeviceRegistration"
	KeyUserEmail              = "breinUserEmail"
	KeyUserID                 = "breinUserId"
)

// AdditionalNotification carries the content of a received notification.
const AdditionalNotification = "notification"

// Dispatcher sends activities. *engine.Engine implements it.
type Dispatcher interface {
	Activity(ctx context.Context, activity *request.Activity, cb engine.Callback) (*engine.Call, error)
}

// Manager keeps the user defaults and the session id.
type Manager struct {
	mu sync.Mutex

	store      store.Store
	dispatcher Dispatcher
	logger     *common.ContextLogger
	newID      func() string

	user      *request.User
	sessionID string
	email     string
	userID    string
	pushToken string
}

// Option configures a Manager.
type Option func(*Manager)

// WithDispatcher enables sending identify and other activities.
func WithDispatcher(d Dispatcher) Option {
	return func(m *Manager) {
		m.dispatcher = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.ContextLogger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator replaces the uuid generator for session and user ids.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a manager persisting to s. A nil store keeps values in memory.
func NewManager(s store.Store, opts ...Option) *Manager {
	if s == nil {
		s = store.NewMemory()
	}
	m := &Manager{
		store: s,
		newID: uuid.NewString,
		user:  request.NewUser(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = common.SDKLogger(nil, "session")
	}
	m.sessionID = m.newID()
	return m
}

// Load reads the user defaults. A user id is generated when none was stored.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, found, err := m.store.Get(ctx, KeyUserID)
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	if !found || userID == "" {
		userID = m.newID()
	}
	email, _, err := m.store.Get(ctx, KeyUserEmail)
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	token, _, err := m.store.Get(ctx, KeyPushDeviceRegistration)
	if err != nil {
		return fmt.Errorf("failed to read push token: %w", err)
	}

	m.setUserID(userID)
	if email != "" {
		m.setEmail(email)
	}
	if token != "" {
		m.setPushToken(token)
	}

	m.logger.WithField("user_id", userID).Debug("User defaults loaded")
	return nil
}

// Save persists email, user id and push token, then sends an identify
// activity if a push token is known.
func (m *Manager) Save(ctx context.Context) error {
	if err := m.persist(ctx); err != nil {
		return err
	}
	_, err := m.SendIdentify(ctx)
	return err
}

func (m *Manager) persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	values := []struct{ key, value string }{
		{KeyUserEmail, m.email},
		{KeyUserID, m.userID},
		{KeyPushDeviceRegistration, m.pushToken},
	}
	for _, v := range values {
		if err := m.put(ctx, v.key, v.value); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureDeviceToken remembers the push token, persists it and sends an
// identify activity.
func (m *Manager) ConfigureDeviceToken(ctx context.Context, token string) error {
	m.mu.Lock()
	m.setPushToken(token)
	err := m.put(ctx, KeyPushDeviceRegistration, token)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	_, err = m.SendIdentify(ctx)
	return err
}

// put stores non-empty values only
func (m *Manager) put(ctx context.Context, key, value string) error {
	if value == "" {
		return nil
	}
	if err := m.store.Put(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// SetEmail sets the remembered email.
func (m *Manager) SetEmail(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setEmail(email)
}

// SetUserID sets the remembered user id.
func (m *Manager) SetUserID(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setUserID(userID)
}

// SetPushDeviceRegistration sets the push token without persisting it.
func (m *Manager) SetPushDeviceRegistration(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPushToken(token)
}

func (m *Manager) setEmail(email string) {
	m.email = email
	m.user.SetEmail(email)
}

func (m *Manager) setUserID(userID string) {
	m.userID = userID
	m.user.SetUserID(userID)
}

func (m *Manager) setPushToken(token string) {
	m.pushToken = token
	m.user.SetPushDeviceRegistration(token)
}

func (m *Manager) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

func (m *Manager) PushDeviceRegistration() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushToken
}

// SessionID returns the id of the current session.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// NewSession starts a new session and returns its id.
func (m *Manager) NewSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = m.newID()
	if m.user.SessionID() != "" {
		m.user.SetSessionID(m.sessionID)
	}
	return m.sessionID
}

// Foreground marks the application active: requests carry the session id.
func (m *Manager) Foreground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user.SetSessionID(m.sessionID)
}

// Background marks the application inactive: the session id is cleared.
func (m *Manager) Background() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user.SetSessionID("")
}

// Apply copies the remembered identity and the session state onto user.
func (m *Manager) Apply(user *request.User) {
	if user == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.email != "" {
		user.SetEmail(m.email)
	}
	if m.userID != "" {
		user.SetUserID(m.userID)
	}
	if m.pushToken != "" {
		user.SetPushDeviceRegistration(m.pushToken)
	}
	user.SetSessionID(m.user.SessionID())
}

// User returns a fresh user carrying the remembered identity and session.
func (m *Manager) User() *request.User {
	user := request.NewUser()
	m.Apply(user)
	return user
}

// IdentifyActivity returns an identify activity, or nil when no push token
// is known.
func (m *Manager) IdentifyActivity() *request.Activity {
	if m.PushDeviceRegistration() == "" {
		return nil
	}
	return request.NewActivity(m.User()).SetType(request.ActivityTypeIdentify)
}

// SendIdentify dispatches IdentifyActivity. It does nothing without a
// dispatcher or push token.
func (m *Manager) SendIdentify(ctx context.Context) (*engine.Call, error) {
	activity := m.IdentifyActivity()
	if activity == nil || m.dispatcher == nil {
		return nil, nil
	}
	m.logger.Debug("Sending identify activity")
	return m.dispatcher.Activity(ctx, activity, m.logOutcome(request.ActivityTypeIdentify))
}

// SendActivity dispatches an activity of the given type for the remembered
// user. content, when given, is attached as user.additional.notification.
func (m *Manager) SendActivity(ctx context.Context, activityType string, content map[string]interface{}, cb engine.Callback) (*engine.Call, error) {
	if m.dispatcher == nil {
		return nil, brerr.Configuration("session.SendActivity", "no dispatcher configured")
	}

	user := m.User()
	if len(content) > 0 {
		if err := user.SetAdditional(AdditionalNotification, content); err != nil {
			return nil, err
		}
	}
	if cb == nil {
		cb = m.logOutcome(activityType)
	}
	return m.dispatcher.Activity(ctx, request.NewActivity(user).SetType(activityType), cb)
}

func (m *Manager) logOutcome(activityType string) engine.Callback {
	return func(res *result.Result, err error) {
		if err != nil {
			m.logger.WithField("activity_type", activityType).WithError(err).Warn("Activity failed")
		}
	}
}
