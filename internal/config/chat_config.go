package config

import "time"

const (
	// Messages
	MaxMessageWords = 300
	MaxMessageChars = 4000

	// Websocket connections
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxFrameSize   = 16 * 1024
	SendBufferSize = 256

	// Broker
	DefaultMaxRoomMembers = 16
	IncomingBufferSize    = 512
	DeliveryBufferSize    = 1024

	// Presence
	PresenceTTL             = 2 * time.Minute
	PresenceRefreshInterval = PresenceTTL / 3

	// Offline notifications
	DefaultNotifyDelay   = 30 * time.Second
	NotifyMaxRetry       = 3
	NotifyPreviewRunes   = 80
	NotifyTaskTimeout    = 15 * time.Second
	WorkerConcurrency    = 5
	DefaultRedisKeyScope = "studylocal:"
)
