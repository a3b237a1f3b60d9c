package config

import "time"

type Sync struct {
	src *source
}

var _ SyncConfig = Sync{}

// GetSyncChannelPrefix is the well-known broadcast channel name; each
// identity gets its own channel under it.
func (s Sync) GetSyncChannelPrefix() string {
	return s.src.lookup("SYNC_CHANNEL", "sync.channel", "trivia-game-sync")
}

func (s Sync) GetSyncBufferSize() int {
	return s.src.lookupInt("SYNC_BUFFER", "sync.buffer", 64)
}

func (s Sync) GetHeartbeatInterval() time.Duration {
	return s.src.lookupDuration("HEARTBEAT_INTERVAL", "sync.heartbeat_interval", time.Minute)
}
