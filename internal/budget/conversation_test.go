package budget

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-context/internal/model"
)

func storeIDs(c *Conversation) []string {
	var out []string
	for it := range c.Store().All() {
		out = append(out, it.ID)
	}
	return out
}

func TestConversation_AdmitReconcilesStore(t *testing.T) {
	e := newTestEngine(at(100))
	conv := e.NewConversation("c1", nil)
	cfg := DefaultConfig(100)

	_, err := conv.Admit([]model.ContextItem{
		mk("sys", model.KindSystem, 30, 0),
		mk("u1", model.KindUser, 40, 1),
	}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 70, conv.Store().TotalTokens())

	res, err := conv.Admit([]model.ContextItem{mk("u2", model.KindUser, 40, 2)}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, res.Dropped())
	assert.ElementsMatch(t, []string{"sys", "u2"}, storeIDs(conv))
	assert.Equal(t, 70, conv.Store().TotalTokens())
	assert.LessOrEqual(t, conv.Store().TotalTokens(), cfg.MaxTokens)
}

func TestConversation_ExpiredItemsLeaveStore(t *testing.T) {
	now := at(0)
	e := New(wordCounter{},
		WithClock(func() time.Time { return now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	conv := e.NewConversation("c1", nil)
	cfg := DefaultConfig(100)

	tool := mk("tool", model.KindToolResult, 10, 0)
	tool.ExpiresAt = at(60)
	_, err := conv.Admit([]model.ContextItem{tool, mk("u1", model.KindUser, 10, 0)}, cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tool", "u1"}, storeIDs(conv))

	now = at(61)
	res, err := conv.Admit(nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, DropExpired, res.DroppedIDs["tool"])
	assert.Equal(t, []string{"u1"}, storeIDs(conv))
	assert.Equal(t, 10, conv.Store().TotalTokens())
}

func TestConversation_FailedAdmitLeavesStoreUnchanged(t *testing.T) {
	e := newTestEngine(at(100))
	conv := e.NewConversation("c1", nil)
	cfg := DefaultConfig(100)

	_, err := conv.Admit([]model.ContextItem{
		mk("sys", model.KindSystem, 30, 0),
		mk("u1", model.KindUser, 40, 1),
	}, cfg)
	require.NoError(t, err)
	before := storeIDs(conv)

	_, err = conv.Admit([]model.ContextItem{
		mk("u2", model.KindUser, 10, 2),
		mk("huge", model.KindUser, 500, 3),
	}, cfg)
	require.ErrorIs(t, err, ErrItemTooLarge)
	assert.Equal(t, before, storeIDs(conv))

	_, err = conv.Admit([]model.ContextItem{mk("sys2", model.KindSystem, 80, 4)}, cfg)
	require.ErrorIs(t, err, ErrBudgetInfeasible)
	assert.Equal(t, before, storeIDs(conv))
	assert.Equal(t, 70, conv.Store().TotalTokens())
}

func TestConversation_RepeatedAdmitIsStable(t *testing.T) {
	e := newTestEngine(at(100))
	conv := e.NewConversation("c1", nil)
	cfg := DefaultConfig(50)

	_, err := conv.Admit([]model.ContextItem{
		mk("sys", model.KindSystem, 10, 0),
		mk("a", model.KindUser, 15, 1),
		mk("b", model.KindToolResult, 15, 2),
		mk("c", model.KindMemory, 15, 3),
		mk("d", model.KindAgentReply, 15, 4),
	}, cfg)
	require.NoError(t, err)
	first := storeIDs(conv)

	for i := 0; i < 3; i++ {
		res, err := conv.Admit(nil, cfg)
		require.NoError(t, err)
		assert.Empty(t, res.DroppedIDs)
		assert.Equal(t, first, storeIDs(conv))
	}
}

func TestConversation_ClearAndReset(t *testing.T) {
	e := newTestEngine(at(100))
	conv := e.NewConversation("c1", nil)
	_, err := conv.Admit([]model.ContextItem{
		mk("sys", model.KindSystem, 1, 0),
		mk("t1", model.KindToolResult, 1, 1),
		mk("t2", model.KindToolResult, 1, 2),
	}, DefaultConfig(10))
	require.NoError(t, err)

	assert.Equal(t, 2, conv.Clear(model.KindToolResult))
	assert.Equal(t, []string{"sys"}, storeIDs(conv))

	conv.Reset()
	assert.Equal(t, 0, conv.Store().Len())
	assert.Equal(t, 0, conv.Store().TotalTokens())
}
