package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name   string
	fail   bool
	events []string
	titles []string
}

func (s *fakeSender) Send(ctx context.Context, event, title, message string) error {
	if s.fail {
		return errors.New("boom")
	}
	s.events = append(s.events, event)
	s.titles = append(s.titles, title)
	return nil
}

func (s *fakeSender) Name() string { return s.name }

func TestNotifyFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventSignal, EventBreaker}, slog.Default())

	require.NoError(t, n.Notify(context.Background(), EventSignal, "t", "m"))
	require.NoError(t, n.Notify(context.Background(), EventPosition, "t", "m"))

	assert.Equal(t, []string{EventSignal}, s.events)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, slog.Default())

	require.NoError(t, n.Notify(context.Background(), EventPosition, "t", "m"))
	assert.Equal(t, []string{EventPosition}, s.events)
}

func TestNotifyCollectsSenderFailures(t *testing.T) {
	bad := &fakeSender{name: "bad", fail: true}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.Default())

	err := n.Notify(context.Background(), EventBreaker, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	// The failing sender does not block delivery to the healthy one.
	assert.Equal(t, []string{EventBreaker}, good.events)
}

func TestTelegramText(t *testing.T) {
	assert.Equal(t, "[SIGNAL] *t*\nm", telegramText(EventSignal, "t", "m"))
	assert.Equal(t, "[ALERT] *t*\nm", telegramText(EventBreaker, "t", "m"))
	assert.Equal(t, "*t*\nm", telegramText("other", "t", "m"))
}

func TestEmbedColor(t *testing.T) {
	assert.Equal(t, colorSignal, embedColor(EventSignal))
	assert.Equal(t, colorBreaker, embedColor(EventBreaker))
	assert.Equal(t, colorPosition, embedColor(EventPosition))
	assert.Equal(t, colorDefault, embedColor("other"))
}
