package chathub

import (
	"context"
	"sync"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/sirupsen/logrus"
)

// MessageStore persists the messages relayed by the hub.
type MessageStore interface {
	Append(ctx context.Context, d messages.Draft) (*models.Message, error)
	Find(ctx context.Context, messageID string) (*models.Message, error)
	Delete(ctx context.Context, messageID string) error
}

// PresenceRecorder mirrors connection presence into a shared store so other
// instances and background jobs can see it.
type PresenceRecorder interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	Touch(ctx context.Context, userID string) error
}

// OfflineNotifier is told about every persisted message so that a recipient
// who is not connected can be reached another way.
type OfflineNotifier interface {
	NotifyOffline(ctx context.Context, msg *models.Message, sender models.Identity) error
}

// Options tune a ManagerService. Zero values select defaults.
type Options struct {
	MaxRoomMembers int
	Presence       PresenceRecorder
	Notifier       OfflineNotifier
	// PresenceRefresh is how often the presence of connected users is
	// extended. It must stay below the presence TTL.
	PresenceRefresh time.Duration
}

// Inbound is an event read from a client connection.
type Inbound struct {
	Client Client
	Event  models.Event
}

type directMessage struct {
	client Client
	event  models.Event
}

type presenceKind int

const (
	presenceOnline presenceKind = iota
	presenceOffline
	presenceTouch
)

type presenceUpdate struct {
	userID string
	kind   presenceKind
}

// ManagerService is the realtime broker. Room membership and presence are
// mutated only by the Run loop; other goroutines read them under mu.
// Fan-out goes through the backplane, so every instance sharing it delivers
// room events to its own members.
//
// Persistence runs outside the loop, so two sends to the same room may be
// broadcast in the order their writes complete rather than the order they
// were issued.
type ManagerService struct {
	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Inbound

	deliverCh chan models.Event
	directCh  chan directMessage
	outCh     chan models.Event
	presentCh chan presenceUpdate
	done      chan struct{}
	stopOnce  sync.Once

	store     MessageStore
	backplane Backplane
	presence  PresenceRecorder
	notifier  OfflineNotifier
	maxRoom   int
	refresh   time.Duration

	mu          sync.RWMutex
	clients     map[Client]bool
	rooms       map[string]map[Client]bool
	clientRooms map[Client]map[string]bool
	online      map[string]map[Client]bool

	ctx context.Context
}

func NewManagerService(store MessageStore, backplane Backplane, opts Options) *ManagerService {
	if opts.MaxRoomMembers <= 0 {
		opts.MaxRoomMembers = config.DefaultMaxRoomMembers
	}
	if opts.PresenceRefresh <= 0 {
		opts.PresenceRefresh = config.PresenceRefreshInterval
	}
	return &ManagerService{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Inbound, config.IncomingBufferSize),
		deliverCh:    make(chan models.Event, config.DeliveryBufferSize),
		directCh:     make(chan directMessage, config.DeliveryBufferSize),
		outCh:        make(chan models.Event, config.DeliveryBufferSize),
		presentCh:    make(chan presenceUpdate, config.DeliveryBufferSize),
		done:         make(chan struct{}),
		store:        store,
		backplane:    backplane,
		presence:     opts.Presence,
		notifier:     opts.Notifier,
		maxRoom:      opts.MaxRoomMembers,
		refresh:      opts.PresenceRefresh,
		clients:      make(map[Client]bool),
		rooms:        make(map[string]map[Client]bool),
		clientRooms:  make(map[Client]map[string]bool),
		online:       make(map[string]map[Client]bool),
		ctx:          context.Background(),
	}
}

// Run subscribes to the backplane and processes hub events until ctx is
// done. On return every client has been closed and the backplane
// subscription is torn down.
func (m *ManagerService) Run(ctx context.Context) error {
	log := logrus.WithField("component", "hub")

	m.ctx = ctx
	if err := m.backplane.Subscribe(ctx, m.onBackplaneEvent); err != nil {
		log.WithError(err).Error("Failed to subscribe to backplane")
		return err
	}
	go m.publishLoop(ctx)

	var refresh <-chan time.Time
	if m.presence != nil {
		go m.presenceLoop(ctx)
		ticker := time.NewTicker(m.refresh)
		defer ticker.Stop()
		refresh = ticker.C
	}

	log.Info("Hub is running...")
	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info("Hub is shutting down...")
			return nil
		case client := <-m.RegisterCh:
			m.registerClient(client)
		case client := <-m.UnregisterCh:
			m.unregisterClient(client)
		case in := <-m.IncomingCh:
			m.handleIncoming(in)
		case ev := <-m.deliverCh:
			m.deliver(ev)
		case d := <-m.directCh:
			m.sendTo(d.client, d.event)
		case <-refresh:
			m.refreshPresence()
		}
	}
}

func (m *ManagerService) shutdown() {
	m.stopOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	for client := range m.clients {
		client.Close()
	}
	m.clients = make(map[Client]bool)
	m.rooms = make(map[string]map[Client]bool)
	m.clientRooms = make(map[Client]map[string]bool)
	m.online = make(map[string]map[Client]bool)
	m.mu.Unlock()

	if err := m.backplane.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close backplane")
	}
}

// Register hands a new connection to the hub. It fails once the hub stopped.
func (m *ManagerService) Register(client Client) error {
	select {
	case m.RegisterCh <- client:
		return nil
	case <-m.done:
		return ErrHubStopped
	}
}

// Unregister removes a connection from the hub.
func (m *ManagerService) Unregister(client Client) {
	select {
	case m.UnregisterCh <- client:
	case <-m.done:
	}
}

// Dispatch queues an event read from a client.
func (m *ManagerService) Dispatch(client Client, ev models.Event) {
	select {
	case m.IncomingCh <- Inbound{Client: client, Event: ev}:
	case <-m.done:
	}
}

// reply queues an event for a single connection. Safe from any goroutine.
func (m *ManagerService) reply(client Client, ev models.Event) {
	select {
	case m.directCh <- directMessage{client: client, event: ev}:
	case <-m.done:
	}
}

func (m *ManagerService) onBackplaneEvent(ev models.Event) {
	select {
	case m.deliverCh <- ev:
	case <-m.done:
	}
}

// publishLoop forwards events produced inside the hub loop, keeping their
// order and keeping backplane latency off the loop.
func (m *ManagerService) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.outCh:
			if err := m.backplane.Publish(ctx, ev); err != nil {
				logrus.WithError(err).WithField("type", ev.Type).Warn("Failed to publish hub event")
			}
		}
	}
}

// enqueue schedules a best-effort publish from inside the loop.
func (m *ManagerService) enqueue(ev models.Event) {
	select {
	case m.outCh <- ev:
	default:
		logrus.WithField("type", ev.Type).Warn("Hub publish queue full, dropping event")
	}
}

func (m *ManagerService) registerClient(client Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	m.mu.Lock()
	m.clients[client] = true
	m.clientRooms[client] = make(map[string]bool)
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"component": "hub",
		"user_id":   client.GetUserID(),
	}).Info("Client registered to Hub")
}

func (m *ManagerService) unregisterClient(client Client) {
	if client == nil || !m.clients[client] {
		return
	}
	userID := client.GetUserID()
	logCtx := logrus.WithFields(logrus.Fields{"component": "hub", "user_id": userID})

	m.mu.Lock()
	for roomID := range m.clientRooms[client] {
		m.removeFromRoom(client, roomID)
	}
	delete(m.clientRooms, client)
	delete(m.clients, client)

	wasOnline := false
	lastConnection := false
	if conns, ok := m.online[userID]; ok && conns[client] {
		wasOnline = true
		delete(conns, client)
		if len(conns) == 0 {
			delete(m.online, userID)
			lastConnection = true
		}
	}
	m.mu.Unlock()

	client.Close()

	if wasOnline {
		m.recordPresence(userID, false)
	}
	if lastConnection {
		m.enqueue(models.Event{Type: models.EventUserStatus, UserID: userID, Status: models.StatusOffline})
		logCtx.Info("User went offline")
	}
	logCtx.Info("Client unregistered from Hub")
}

// removeFromRoom must be called with mu held.
func (m *ManagerService) removeFromRoom(client Client, roomID string) {
	if members, ok := m.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, roomID)
		}
	}
	if joined, ok := m.clientRooms[client]; ok {
		delete(joined, roomID)
	}
}

func (m *ManagerService) markOnline(client Client) {
	userID := client.GetUserID()

	m.mu.Lock()
	conns, ok := m.online[userID]
	if !ok {
		conns = make(map[Client]bool)
		m.online[userID] = conns
	}
	already := conns[client]
	conns[client] = true
	m.mu.Unlock()

	if !already {
		m.recordPresence(userID, true)
	}
	m.enqueue(models.Event{Type: models.EventUserStatus, UserID: userID, Status: models.StatusOnline})
}

// recordPresence queues a presence update. Updates reach the store in the
// order they were queued, so a quick reconnect cannot leave a stale counter.
func (m *ManagerService) recordPresence(userID string, online bool) {
	if m.presence == nil {
		return
	}
	kind := presenceOffline
	if online {
		kind = presenceOnline
	}
	select {
	case m.presentCh <- presenceUpdate{userID: userID, kind: kind}:
	case <-m.ctx.Done():
	}
}

// refreshPresence extends the presence of every user connected here, so an
// idle but open connection does not expire.
func (m *ManagerService) refreshPresence() {
	for userID := range m.online {
		select {
		case m.presentCh <- presenceUpdate{userID: userID, kind: presenceTouch}:
		default:
			logrus.WithField("user_id", userID).Warn("Presence queue full, skipping refresh")
		}
	}
}

func (m *ManagerService) presenceLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-m.presentCh:
			var err error
			switch u.kind {
			case presenceOnline:
				err = m.presence.SetOnline(ctx, u.userID)
			case presenceOffline:
				err = m.presence.SetOffline(ctx, u.userID)
			case presenceTouch:
				err = m.presence.Touch(ctx, u.userID)
			}
			if err != nil {
				logrus.WithError(err).WithField("user_id", u.userID).Warn("Failed to record presence")
			}
		}
	}
}

// deliver fans a backplane event out to the local connections it concerns.
func (m *ManagerService) deliver(ev models.Event) {
	var targets []Client
	if ev.IsGlobal() {
		for client := range m.clients {
			targets = append(targets, client)
		}
	} else {
		for client := range m.rooms[ev.RoomID] {
			targets = append(targets, client)
		}
	}
	for _, client := range targets {
		m.sendTo(client, ev)
	}
}

// sendTo writes to a client's buffer. A client that cannot keep up is
// dropped.
func (m *ManagerService) sendTo(client Client, ev models.Event) {
	if !m.clients[client] {
		return
	}
	select {
	case client.GetSendChannel() <- ev:
	default:
		logrus.WithFields(logrus.Fields{
			"component": "hub",
			"user_id":   client.GetUserID(),
		}).Warn("Client send buffer full, dropping connection")
		m.unregisterClient(client)
	}
}

// RoomSize returns the number of local connections joined to a room.
func (m *ManagerService) RoomSize(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[roomID])
}

// IsOnline reports whether the user has a connection marked online on this
// instance.
func (m *ManagerService) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.online[userID]) > 0
}

// ClientCount returns the number of registered connections.
func (m *ManagerService) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
