package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientEvent_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, ev ClientEvent)
	}{
		{
			name: "user_online",
			raw:  `{"user_online":{"user_id":7}}`,
			check: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Online, "expected user_online to be set")
				assert.Equal(t, 7, ev.Online.UserId, "expected user id")
			},
		},
		{
			name: "send_message",
			raw:  `{"send_message":{"sender_id":1,"receiver_id":2,"message_text":"selam"}}`,
			check: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Send, "expected send_message to be set")
				assert.Equal(t, "selam", ev.Send.MessageText, "expected message text")
			},
		},
		{
			name: "message_seen",
			raw:  `{"message_seen":{"message_id":9,"user_id":2}}`,
			check: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Seen, "expected message_seen to be set")
				assert.Equal(t, 9, ev.Seen.MessageId, "expected message id")
			},
		},
		{
			name: "typing",
			raw:  `{"typing":{"sender_id":1,"receiver_id":2,"is_typing":true}}`,
			check: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Typing, "expected typing to be set")
				assert.True(t, ev.Typing.IsTyping, "expected typing flag")
			},
		},
		{
			name: "unknown kind leaves all fields nil",
			raw:  `{"bogus":{"user_id":1}}`,
			check: func(t *testing.T, ev ClientEvent) {
				assert.Nil(t, ev.Online, "expected no event kind to be set")
				assert.Nil(t, ev.Join, "expected no event kind to be set")
				assert.Nil(t, ev.Send, "expected no event kind to be set")
				assert.Nil(t, ev.Seen, "expected no event kind to be set")
				assert.Nil(t, ev.Typing, "expected no event kind to be set")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var ev ClientEvent
			err := json.Unmarshal([]byte(tc.raw), &ev)
			assert.NoError(t, err, "expected event to parse")
			tc.check(t, ev)
		})
	}
}

func TestServerEvent_Marshal(t *testing.T) {
	t.Run("online status omits last_seen", func(t *testing.T) {
		bytes, err := json.Marshal(onlineStatusEvent(3))
		assert.NoError(t, err, "expected event to serialize")
		assert.JSONEq(t, `{"user_status":{"user_id":3,"is_online":true}}`, string(bytes),
			"expected online status without last_seen")
	})

	t.Run("offline status carries last_seen", func(t *testing.T) {
		lastSeen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		bytes, err := json.Marshal(offlineStatusEvent(3, lastSeen))
		assert.NoError(t, err, "expected event to serialize")
		assert.JSONEq(t, `{"user_status":{"user_id":3,"is_online":false,"last_seen":"2025-06-01T12:00:00Z"}}`,
			string(bytes), "expected offline status with last_seen")
	})

	t.Run("message_status", func(t *testing.T) {
		bytes, err := json.Marshal(messageStatusEvent(42, true))
		assert.NoError(t, err, "expected event to serialize")
		assert.JSONEq(t, `{"message_status":{"message_id":42,"is_seen":true}}`, string(bytes),
			"expected message status payload")
	})

	t.Run("only the set kind is emitted", func(t *testing.T) {
		bytes, err := json.Marshal(connectedEvent())
		assert.NoError(t, err, "expected event to serialize")
		assert.JSONEq(t, `{"connected":{"status":"connected"}}`, string(bytes),
			"expected a single event key")
	})
}
