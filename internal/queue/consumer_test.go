package queue

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_HandleAppendsLogLine(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	c := NewConsumer("amqp://unused", path, log)

	user := uint64(5)
	events := []BookingConfirmedEvent{
		{BookingID: 1, PaymentID: 2, UserID: &user, ShowtimeID: 3, RoomID: 4, SeatLabels: []string{"A1", "A2"}, TotalPrice: 100000, PaymentMethod: "card", ConfirmedAt: "2024-01-01T10:00:00Z"},
		{BookingID: 6, PaymentID: 7, ShowtimeID: 3, RoomID: 4, SeatLabels: []string{"B1"}, TotalPrice: 500, PaymentMethod: "cash", ConfirmedAt: "2024-01-01T10:01:00Z"},
	}
	for _, ev := range events {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-01-01T10:00:00Z] Booking confirmed | booking_id=1 | payment_id=2 | user_id=5 | showtime_id=3 | room_id=4 | total=100000 | method=card | seats=[A1,A2]", lines[0])
	assert.Contains(t, lines[1], "user_id=guest")
	assert.Contains(t, lines[1], "seats=[B1]")
}

func TestConsumer_HandleRejectsBadMessages(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	path := filepath.Join(t.TempDir(), "booking.log")
	c := NewConsumer("amqp://unused", path, log)

	assert.Error(t, c.Handle([]byte("not json")))
	assert.Error(t, c.Handle([]byte(`{"showtime_id": 3}`)))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
