package notes

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/heraldbot/herald/internal/handler"
	"github.com/heraldbot/herald/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingGateway collects outbound texts so command output can be
// asserted without a live bot.
type recordingGateway struct {
	sent   []string
	nextID int
}

func (g *recordingGateway) SendMessage(ctx context.Context, chatID int64, text string, opts *handler.SendOptions) (*models.Message, error) {
	g.sent = append(g.sent, text)
	g.nextID++
	return &models.Message{ID: g.nextID, Text: text, Chat: models.Chat{ID: chatID}}, nil
}

func (g *recordingGateway) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *handler.SendOptions) (*models.Message, error) {
	g.sent = append(g.sent, text)
	return &models.Message{ID: messageID, Text: text, Chat: models.Chat{ID: chatID}}, nil
}

func (g *recordingGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return nil
}

func (g *recordingGateway) FetchMessage(ctx context.Context, chatID int64, messageID int) (*models.Message, error) {
	return &models.Message{ID: messageID, Chat: models.Chat{ID: chatID}}, nil
}

func (g *recordingGateway) OwnerIDs(ctx context.Context) ([]int64, error) {
	return nil, nil
}

var _ handler.Gateway = (*recordingGateway)(nil)

func newNoteDispatcher(t *testing.T) (*handler.Dispatcher, *recordingGateway) {
	t.Helper()
	db := testutils.NewTestDB(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	gateway := &recordingGateway{}
	d := handler.New(gateway, handler.Options{Prefixes: []string{"!"}})

	grp, err := NewCommands(db.DB, logger).Group()
	require.NoError(t, err)
	require.NoError(t, d.Registry().Add(grp))
	return d, gateway
}

func noteMessage(text string) *models.Message {
	return &models.Message{
		ID:   10,
		Text: text,
		Chat: models.Chat{ID: 123, Type: "group"},
		From: &models.User{ID: 456, FirstName: "Test"},
	}
}

func TestNoteCommands_AddListDelete(t *testing.T) {
	d, gateway := newNoteDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Handle(ctx, noteMessage("!note add remember the milk")))
	require.Len(t, gateway.sent, 1)
	assert.Contains(t, gateway.sent[0], "saved")

	require.NoError(t, d.Handle(ctx, noteMessage("!note list")))
	require.Len(t, gateway.sent, 2)
	assert.Contains(t, gateway.sent[1], "remember the milk")

	require.NoError(t, d.Handle(ctx, noteMessage("!note del 1")))
	require.Len(t, gateway.sent, 3)
	assert.Contains(t, gateway.sent[2], "deleted")
}

func TestNoteCommands_RandomWithoutNotes(t *testing.T) {
	d, gateway := newNoteDispatcher(t)

	require.NoError(t, d.Handle(context.Background(), noteMessage("!note")))
	require.Len(t, gateway.sent, 1)
	assert.Contains(t, gateway.sent[0], "No notes")
}

func TestNoteCommands_AddWithoutTextIsArityError(t *testing.T) {
	d, gateway := newNoteDispatcher(t)

	err := d.Handle(context.Background(), noteMessage("!note add"))
	var notEnough *handler.NotEnoughArgumentsError
	require.ErrorAs(t, err, &notEnough)
	assert.Empty(t, gateway.sent)
}

func TestNoteCommands_DelRejectsNonNumericID(t *testing.T) {
	d, gateway := newNoteDispatcher(t)

	require.NoError(t, d.Handle(context.Background(), noteMessage("!note del abc")))
	require.Len(t, gateway.sent, 1)
	assert.Contains(t, gateway.sent[0], "not a note ID")
}

func TestNoteCommands_DelMissingNote(t *testing.T) {
	d, gateway := newNoteDispatcher(t)

	require.NoError(t, d.Handle(context.Background(), noteMessage("!note del 9999")))
	require.Len(t, gateway.sent, 1)
	assert.Contains(t, gateway.sent[0], "No note")
}

func TestNoteCommands_GroupOnlyInGroups(t *testing.T) {
	d, gateway := newNoteDispatcher(t)

	msg := noteMessage("!note")
	msg.Chat.Type = "private"

	err := d.Handle(context.Background(), msg)
	var checkErr *handler.CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.ErrorIs(t, checkErr.Cause, handler.ErrGroupOnly)
	assert.Empty(t, gateway.sent)
}
