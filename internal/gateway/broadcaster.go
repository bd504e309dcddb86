package gateway

import (
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// Broadcaster constructs envelope JSON and sends it to every client.
type Broadcaster struct {
	hub *Hub
	now func() time.Time
}

// NewBroadcaster creates a Broadcaster backed by the given Hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub, now: time.Now}
}

// Broadcast records data as the latest payload for channel and fans the
// envelope {"channel","data","ts","seq","channel_seq"} out to all clients.
// Clients whose send queue is full miss the message; they resync from the
// next one since every view is a complete replacement.
func (b *Broadcaster) Broadcast(channel string, data []byte) {
	now := b.now().UTC()

	if updated := extractUpdatedAt(data); !updated.IsZero() {
		b.hub.metrics.ObserveWSLag(now.Sub(updated))
	}

	b.hub.mu.Lock()
	b.hub.channelSeqs[channel]++
	channelSeq := b.hub.channelSeqs[channel]
	b.hub.latest[channel] = latestEntry{Data: data, TS: now, Seq: channelSeq}
	b.hub.seq++
	seq := b.hub.seq
	b.hub.mu.Unlock()

	buf := buildEnvelope(channel, data, now, seq, channelSeq)

	b.hub.metrics.IncBroadcast()

	b.hub.mu.RLock()
	defer b.hub.mu.RUnlock()
	for client := range b.hub.clients {
		select {
		case client.send <- buf:
		default:
			b.hub.metrics.IncWSDrop()
		}
	}
}

// buildEnvelope hand-crafts the envelope; data is already JSON and channel
// names never need escaping.
func buildEnvelope(channel string, data []byte, now time.Time, seq, channelSeq int64) []byte {
	buf := make([]byte, 0, len(channel)+len(data)+128)
	buf = append(buf, `{"channel":"`...)
	buf = append(buf, channel...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"channel_seq":`...)
	buf = strconv.AppendInt(buf, channelSeq, 10)
	buf = append(buf, '}')
	return buf
}

// extractUpdatedAt reads the view's "updatedAt" field, if any.
func extractUpdatedAt(data []byte) time.Time {
	r := gjson.GetBytes(data, "updatedAt")
	if r.Type != gjson.String {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, r.Str)
	if err != nil {
		return time.Time{}
	}
	return t
}
