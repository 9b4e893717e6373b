package conversation

import (
	"context"
	"testing"
	"time"

	"fridge-chef/internal/pkg/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipes(titles ...string) []common.Recipe {
	out := make([]common.Recipe, 0, len(titles))
	for _, t := range titles {
		out = append(out, common.Recipe{Title: t, Ingredients: []string{"x"}, Steps: []string{"y"}})
	}
	return out
}

func TestNewStateHasOnlyGreeting(t *testing.T) {
	s := NewState("u1")
	require.Len(t, s.Messages, 1)
	assert.Equal(t, Greeting, s.Messages[0].Text)
	assert.False(t, s.Messages[0].IsUser)
	assert.Nil(t, s.Candidates())
	assert.Equal(t, -1, s.Expanded)
}

func TestUserMessageClearsCandidates(t *testing.T) {
	s := NewState("u1")
	s.AppendUser("what can i make")
	m := s.AppendRecipes("Here you go", recipes("A", "B"))
	require.Len(t, s.Candidates(), 2)
	require.NoError(t, s.ToggleExpand(1))
	r, err := s.Candidate(0)
	require.NoError(t, err)
	s.Selection.Select(r)

	s.AppendUser("thanks")

	assert.Nil(t, s.Candidates())
	assert.Equal(t, -1, s.Expanded)
	assert.False(t, s.Selection.Pending())
	_, err = s.Candidate(0)
	assert.ErrorIs(t, err, ErrRecipeIndex)

	// 舊訊息仍保有附加的食譜
	old, ok := s.Message(m.ID)
	require.True(t, ok)
	assert.Len(t, old.AttachedRecipes, 2)
}

func TestMessagesAppendInOrder(t *testing.T) {
	s := NewState("u1")
	a := s.AppendUser("one")
	b := s.AppendAssistant("two", true)
	c := s.AppendUser("three")

	require.Len(t, s.Messages, 4)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{s.Messages[1].ID, s.Messages[2].ID, s.Messages[3].ID})
	assert.True(t, s.Messages[2].Reveal)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestToggleExpand(t *testing.T) {
	s := NewState("u1")
	assert.ErrorIs(t, s.ToggleExpand(0), ErrRecipeIndex)

	s.AppendRecipes("r", recipes("A", "B", "C"))
	require.NoError(t, s.ToggleExpand(2))
	assert.Equal(t, 2, s.Expanded)
	require.NoError(t, s.ToggleExpand(0))
	assert.Equal(t, 0, s.Expanded)
	require.NoError(t, s.ToggleExpand(0))
	assert.Equal(t, -1, s.Expanded)
	assert.ErrorIs(t, s.ToggleExpand(3), ErrRecipeIndex)
	assert.ErrorIs(t, s.ToggleExpand(-1), ErrRecipeIndex)
}

func TestReset(t *testing.T) {
	s := NewState("u1")
	s.AppendUser("hi")
	s.AppendRecipes("r", recipes("A"))
	s.Reset()

	require.Len(t, s.Messages, 1)
	assert.Equal(t, Greeting, s.Messages[0].Text)
	assert.Nil(t, s.Candidates())
}

func TestAttachedRecipesAreCopied(t *testing.T) {
	s := NewState("u1")
	in := recipes("A")
	s.AppendRecipes("r", in)
	in[0].Title = "changed"

	c := s.Candidates()
	assert.Equal(t, "A", c[0].Title)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	s, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	s.AppendUser("hello")
	require.NoError(t, store.Save(ctx, s))

	// 呼叫端修改不影響已儲存的狀態
	s.AppendUser("unsaved")

	got, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	now = now.Add(2 * time.Hour)
	expired, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, expired.Messages, 1)

	require.NoError(t, store.Save(ctx, got))
	require.NoError(t, store.Delete(ctx, "u1"))
	fresh, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, fresh.Messages, 1)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, time.Hour)

	s, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	s.AppendUser("what can i make")
	s.AppendRecipes("Here are some recipes", recipes("A", "B"))
	r, err := s.Candidate(1)
	require.NoError(t, err)
	s.Selection.Select(r)
	require.NoError(t, store.Save(ctx, s))

	assert.True(t, mr.Exists("conversation:u1"))
	assert.Equal(t, time.Hour, mr.TTL("conversation:u1"))

	got, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
	assert.Len(t, got.Candidates(), 2)
	assert.True(t, got.Selection.Pending())
	assert.Equal(t, "B", got.Selection.Recipe.Title)

	mr.FastForward(2 * time.Hour)
	expired, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, expired.Messages, 1)

	require.NoError(t, store.Delete(ctx, "u1"))
}

func TestRedisStoreCorruptData(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("conversation:u1", "{not json"))
	_, err := NewRedisStore(client, time.Hour).Load(context.Background(), "u1")
	assert.Error(t, err)
}

func collect(ch <-chan string) []string {
	var out []string
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func TestRevealProducesGrowingPrefixes(t *testing.T) {
	got := collect(Reveal(context.Background(), "héllo", time.Millisecond))
	assert.Equal(t, []string{"h", "hé", "hél", "héll", "héllo"}, got)
}

func TestRevealWithoutInterval(t *testing.T) {
	assert.Equal(t, []string{"done"}, collect(Reveal(context.Background(), "done", 0)))
	assert.Equal(t, []string{""}, collect(Reveal(context.Background(), "", time.Millisecond)))
}

func TestRevealStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Reveal(ctx, "a fairly long response that will not finish", 10*time.Millisecond)

	first := <-ch
	assert.Equal(t, "a", first)
	cancel()

	rest := collect(ch)
	assert.Less(t, len(rest), 5)
}
