package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydeck/studyrag/internal/embed"
	ragerr "github.com/studydeck/studyrag/internal/errors"
	"github.com/studydeck/studyrag/internal/llm"
	"github.com/studydeck/studyrag/internal/store"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	s, err := store.NewLocal("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := []Option{
		WithStore(s),
		WithEmbedder(embed.NewStaticEmbedder()),
	}
	e, err := NewEngine(append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNewEngine_RequiresStoreAndEmbedder(t *testing.T) {
	_, err := NewEngine(WithEmbedder(embed.NewStaticEmbedder()))
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeConfigInvalid, ragerr.CodeOf(err))

	s, err := store.NewLocal("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = NewEngine(WithStore(s))
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeConfigInvalid, ragerr.CodeOf(err))
}

func TestEngine_IngestThenQuery(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	stats, err := e.Ingest(ctx, []Document{
		{Source: "bio.md", Text: "Photosynthesis converts sunlight into chemical energy stored in glucose."},
		{Source: "chem.md", Text: "Covalent bonds share electron pairs between atoms."},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 2, stats.Indexed)
	assert.NotEmpty(t, stats.DeckID)

	hits, err := e.Query(ctx, "how does photosynthesis store energy")
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Payload.Text, "Photosynthesis")
	assert.Equal(t, "bio.md", hits[0].Payload.Source)
}

func TestEngine_Ingest_EmptyDocuments(t *testing.T) {
	e := newTestEngine(t)

	stats, err := e.Ingest(context.Background(), []Document{{Text: "   "}})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Documents)
	assert.Zero(t, stats.Chunks)
	assert.Zero(t, stats.Indexed)
}

func TestEngine_Ingest_ReingestDoesNotDuplicate(t *testing.T) {
	s, err := store.NewLocal("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e, err := NewEngine(WithStore(s), WithEmbedder(embed.NewStaticEmbedder()))
	require.NoError(t, err)
	ctx := context.Background()

	doc := Document{Source: "notes.md", Text: "Mitochondria produce ATP through cellular respiration."}
	_, err = e.Ingest(ctx, []Document{doc}, WithDeck("deck-fixed"))
	require.NoError(t, err)
	_, err = e.Ingest(ctx, []Document{doc}, WithDeck("deck-fixed"))
	require.NoError(t, err)

	// Chunk identity is the content hash: the second run overwrites
	n, err := s.Count(ctx, DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEngine_Query_DeckFilterScopesResults(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, []Document{
		{Source: "a.md", Text: "Osmosis moves water across a semipermeable membrane."},
	}, WithDeck("deck-a"))
	require.NoError(t, err)
	_, err = e.Ingest(ctx, []Document{
		{Source: "b.md", Text: "Osmosis is passive transport of water molecules."},
	}, WithDeck("deck-b"))
	require.NoError(t, err)

	hits, err := e.Query(ctx, "osmosis water", WithDeck("deck-a"))
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, "deck-a", h.Payload.DeckID)
	}
}

// zeroEmbedder embeds everything to the zero vector, forcing the
// lexical fallback path.
type zeroEmbedder struct{}

func (zeroEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, embed.StaticDimensions), nil
}

func (z zeroEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, embed.StaticDimensions)
	}
	return out, nil
}

func (zeroEmbedder) Dimensions() int   { return embed.StaticDimensions }
func (zeroEmbedder) ModelName() string { return "zero" }
func (zeroEmbedder) Close() error      { return nil }

func TestEngine_Query_ZeroVectorFallsBackToKeyword(t *testing.T) {
	s, err := store.NewLocal("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e, err := NewEngine(WithStore(s), WithEmbedder(zeroEmbedder{}))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = e.Ingest(ctx, []Document{
		{Source: "bio.md", Text: "Photosynthesis converts sunlight into chemical energy."},
	})
	require.NoError(t, err)

	// The zero embedder cannot rank anything; lexical search still can
	hits, err := e.Query(ctx, "photosynthesis")
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Payload.Text, "Photosynthesis")
}

// scriptedChat is an llm.ChatClient returning a fixed reply.
type scriptedChat struct {
	reply string
	user  string
}

func (c *scriptedChat) Complete(_ context.Context, _, user string) (string, error) {
	c.user = user
	return c.reply, nil
}

func TestEngine_Answer_GroundedWithSources(t *testing.T) {
	chat := &scriptedChat{reply: "Sunlight becomes chemical energy [1]."}
	e := newTestEngine(t, WithSynthesizer(llm.NewSynthesizer(chat)))
	ctx := context.Background()

	_, err := e.Ingest(ctx, []Document{
		{Source: "bio.md", Text: "Photosynthesis converts sunlight into chemical energy stored in glucose."},
	})
	require.NoError(t, err)

	result, err := e.Answer(ctx, "what does photosynthesis produce")
	require.NoError(t, err)

	assert.Equal(t, "Sunlight becomes chemical energy [1].", result.Answer)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, 1, result.Sources[0].Index)
	assert.Equal(t, "bio.md", result.Sources[0].Origin)
	assert.Contains(t, result.Sources[0].Text, "Photosynthesis")

	// The packed context reached the model in numbered form
	assert.Contains(t, chat.user, "[1] Photosynthesis")
}

func TestEngine_Answer_NoResultsReturnsUnknown(t *testing.T) {
	chat := &scriptedChat{reply: "should never be called"}
	e := newTestEngine(t, WithSynthesizer(llm.NewSynthesizer(chat)))

	result, err := e.Answer(context.Background(), "anything at all")
	require.NoError(t, err)

	assert.Equal(t, llm.Unknown, result.Answer)
	assert.Empty(t, result.Sources)
}

func TestEngine_Answer_WithoutSynthesizerReturnsUnknown(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, []Document{{Source: "a.md", Text: "Some indexed study material about enzymes."}})
	require.NoError(t, err)

	result, err := e.Answer(ctx, "enzymes")
	require.NoError(t, err)

	assert.Equal(t, llm.Unknown, result.Answer)
	// Retrieval still ran; sources are reported even without a model
	assert.NotEmpty(t, result.Sources)
}

func TestEngine_Answer_BudgetLimitsSources(t *testing.T) {
	chat := &scriptedChat{reply: "ok"}
	e := newTestEngine(t, WithSynthesizer(llm.NewSynthesizer(chat)))
	ctx := context.Background()

	long := strings.Repeat("cell membranes regulate transport ", 30)
	_, err := e.Ingest(ctx, []Document{
		{Source: "a.md", Text: "membrane transport basics. " + long},
		{Source: "b.md", Text: "membrane transport advanced. " + long},
	})
	require.NoError(t, err)

	// A budget that fits only the first candidate
	result, err := e.Answer(ctx, "membrane transport", ContextBudget(10))
	require.NoError(t, err)

	assert.Len(t, result.Sources, 1)
}

func TestEngine_Sources_ListsDeckEntries(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, []Document{
		{Source: "a.md", Text: "First fact about genetics and inheritance."},
		{Source: "b.md", Text: "Second fact about meiosis and recombination."},
	}, WithDeck("deck-genetics"))
	require.NoError(t, err)
	_, err = e.Ingest(ctx, []Document{
		{Source: "c.md", Text: "Unrelated fact about thermodynamics."},
	}, WithDeck("deck-physics"))
	require.NoError(t, err)

	result, err := e.Sources(ctx, "deck-genetics")
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	origins := []string{result.Entries[0].Origin, result.Entries[1].Origin}
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, origins)
	assert.Zero(t, result.Skipped)
}

func TestEngine_Query_HybridFusesVectorAndKeyword(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, []Document{
		{Source: "bio.md", Text: "Mitochondria produce ATP through cellular respiration."},
		{Source: "chem.md", Text: "Covalent bonds share electron pairs between atoms."},
	}, WithDeck("deck-hybrid"))
	require.NoError(t, err)

	hits, err := e.Query(ctx, "mitochondria respiration", WithDeck("deck-hybrid"), Hybrid())
	require.NoError(t, err)

	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Payload.Text, "Mitochondria")
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestEngine_Health(t *testing.T) {
	e := newTestEngine(t)
	assert.NoError(t, e.Health(context.Background()))
}

func TestEngine_CallOptionsOverrideDefaults(t *testing.T) {
	e := newTestEngine(t, WithK(7), WithContextBudget(500), WithCollection("custom"))

	resolved := e.resolve([]CallOption{K(2), InCollection("other")})

	assert.Equal(t, 2, resolved.k)
	assert.Equal(t, "other", resolved.collection)
	assert.Equal(t, 500, resolved.contextBudget)
}
