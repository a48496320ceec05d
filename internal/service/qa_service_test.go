package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfqa/internal/ai"
	"github.com/xxxsen/pdfqa/internal/chunker"
	"github.com/xxxsen/pdfqa/internal/filestore"
	"github.com/xxxsen/pdfqa/internal/indexstore"
	"github.com/xxxsen/pdfqa/internal/model"
	appErr "github.com/xxxsen/pdfqa/internal/pkg/errors"
	"github.com/xxxsen/pdfqa/internal/tokenizer"
)

var vocab = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}

// vocabEmbedder gives every known word its own axis plus a small shared bias.
type vocabEmbedder struct {
	err   error
	tasks []string
}

func (v *vocabEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	v.tasks = append(v.tasks, taskType)
	if v.err != nil {
		return nil, v.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(vocab)+1)
		vec[len(vocab)] = 0.01
		for _, w := range strings.Fields(t) {
			for j, known := range vocab {
				if w == known {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

type fakeAnswerer struct {
	prompt   string
	answer   string
	err      error
	maxChars int
}

func (f *fakeAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func (f *fakeAnswerer) MaxInputChars() int {
	return f.maxChars
}

type fixture struct {
	svc      *QAService
	store    *indexstore.Store
	files    filestore.Store
	indexes  filestore.Store
	embedder *vocabEmbedder
	answerer *fakeAnswerer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ch, err := chunker.New(tokenizer.NewWhitespace(), chunker.Config{ChunkSize: 4, Overlap: 1})
	require.NoError(t, err)
	indexes := filestore.NewLocal(t.TempDir())
	store := indexstore.NewStore(indexstore.NewBlobPersister(indexes), 8, time.Minute)
	files := filestore.NewLocal(t.TempDir())
	emb := &vocabEmbedder{}
	ans := &fakeAnswerer{answer: "zeta [page 2]"}
	return &fixture{
		svc:      NewQAService(store, files, ch, emb, ans, 5),
		store:    store,
		files:    files,
		indexes:  indexes,
		embedder: emb,
		answerer: ans,
	}
}

func TestUploadThenAsk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	up, err := f.svc.Upload(ctx, "notes.txt", []byte("alpha beta gamma delta\fepsilon zeta eta theta"))
	require.NoError(t, err)
	require.Equal(t, 2, up.NumChunks)
	_, err = uuid.Parse(up.DocID)
	require.NoError(t, err)

	raw, err := filestore.ReadAll(ctx, f.files, up.DocID+".txt")
	require.NoError(t, err)
	require.Contains(t, string(raw), "alpha")

	ans, err := f.svc.Ask(ctx, up.DocID, "  zeta  ")
	require.NoError(t, err)
	require.Equal(t, "zeta [page 2]", ans.Answer)
	require.Len(t, ans.Sources, 2)
	require.Equal(t, 2, ans.Sources[0].Page)
	require.Equal(t, "2_0", ans.Sources[0].ChunkID)
	require.Greater(t, ans.Sources[0].Score, ans.Sources[1].Score)

	require.Contains(t, f.answerer.prompt, "[page 2] epsilon zeta eta theta\n\n[page 1] alpha beta gamma delta")
	require.Contains(t, f.answerer.prompt, "Question: zeta")
	require.Equal(t, []string{ai.TaskRetrievalDocument, ai.TaskRetrievalQuery}, f.embedder.tasks)

	stat, err := f.svc.Stat(ctx, up.DocID)
	require.NoError(t, err)
	require.Equal(t, &model.DocumentStat{DocID: up.DocID, Dim: len(vocab) + 1, Vectors: 2}, stat)
}

func TestUploadRejectsUnsupportedAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "sheet.xlsx", []byte("x"))
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.svc.Upload(ctx, "blank.txt", []byte(" \n\f  "))
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Contains(t, err.Error(), "no text extracted")
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()

	_, err := f.svc.Ingest(ctx, "not-a-uuid", []model.Chunk{{DocID: "not-a-uuid", Text: "alpha"}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.svc.Ingest(ctx, id, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.svc.Ingest(ctx, id, []model.Chunk{{DocID: uuid.NewString(), ChunkID: "1_0", PageNum: 1, Text: "alpha"}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.svc.Ingest(ctx, id, []model.Chunk{{DocID: id, ChunkID: "bogus", PageNum: 1, Text: "alpha"}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.svc.Ingest(ctx, id, []model.Chunk{{DocID: id, ChunkID: "2_0", PageNum: 1, Text: "alpha"}})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	for _, c := range []model.Chunk{
		{DocID: id, ChunkID: "0_0", PageNum: 0, StartToken: 50, EndToken: -3, Text: "alpha"},
		{DocID: id, ChunkID: "1_0", PageNum: 1, StartToken: -1, EndToken: 4, Text: "alpha"},
		{DocID: id, ChunkID: "1_0", PageNum: 1, StartToken: 9, EndToken: 4, Text: "alpha"},
		{DocID: id, ChunkID: "1_-3", PageNum: 1, StartToken: 0, EndToken: 4, Text: "alpha"},
	} {
		_, err = f.svc.Ingest(ctx, id, []model.Chunk{c})
		require.ErrorIs(t, err, appErr.ErrInvalid, c.ChunkID)
	}
	require.Empty(t, f.embedder.tasks)

	_, err = f.svc.Stat(ctx, id)
	require.ErrorIs(t, err, appErr.ErrNotFound, "rejected chunks must not create the document")
}

func TestIngestAppendsAcrossCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()

	res, err := f.svc.Ingest(ctx, id, []model.Chunk{
		{DocID: id, ChunkID: "1_0", PageNum: 1, Text: "alpha"},
		{DocID: id, ChunkID: "1_1", PageNum: 1, Text: "beta"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.AcceptedCount)
	_, err = f.svc.Ingest(ctx, id, []model.Chunk{{DocID: id, ChunkID: "2_0", PageNum: 2, Text: "theta"}})
	require.NoError(t, err)

	stat, err := f.svc.Stat(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 3, stat.Vectors)

	ans, err := f.svc.Ask(ctx, id, "theta")
	require.NoError(t, err)
	require.Equal(t, "2_0", ans.Sources[0].ChunkID)
}

func TestIngestEmbeddingFailureCommitsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()
	f.embedder.err = errors.New("quota exceeded")

	_, err := f.svc.Ingest(ctx, id, []model.Chunk{{DocID: id, ChunkID: "1_0", PageNum: 1, Text: "alpha"}})
	require.ErrorIs(t, err, appErr.ErrUpstream)

	_, err = f.svc.Stat(ctx, id)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestAskValidationAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, uuid.NewString(), "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	f.answerer.maxChars = 5
	_, err = f.svc.Ask(ctx, uuid.NewString(), "a long question")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	f.answerer.maxChars = 0

	_, err = f.svc.Ask(ctx, uuid.NewString(), "zeta")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestAskEmptyIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()
	_, err := f.store.Create(ctx, id, len(vocab)+1)
	require.NoError(t, err)

	_, err = f.svc.Ask(ctx, id, "zeta")
	require.ErrorIs(t, err, appErr.ErrEmptyIndex)
	// the question was embedded before the emptiness check
	require.Equal(t, []string{ai.TaskRetrievalQuery}, f.embedder.tasks)
}

func TestAskUnreadableIndexIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()
	require.NoError(t, filestore.SaveBytes(ctx, f.indexes, id+".index", []byte("garbage")))
	require.NoError(t, filestore.SaveBytes(ctx, f.indexes, id+"_meta.json", []byte("[]")))

	_, err := f.svc.Ask(ctx, id, "zeta")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.False(t, errors.Is(err, appErr.ErrStorage))
}

func TestAskGenerationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	up, err := f.svc.Upload(ctx, "a.md", []byte("# alpha\n\nbeta gamma"))
	require.NoError(t, err)

	f.answerer.err = ai.ErrEmptyResponse
	_, err = f.svc.Ask(ctx, up.DocID, "alpha")
	require.ErrorIs(t, err, appErr.ErrUpstream)

	f.answerer.err = context.DeadlineExceeded
	_, err = f.svc.Ask(ctx, up.DocID, "alpha")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetrieverCapsTopK(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()
	chunks := make([]model.Chunk, 0, len(vocab))
	for i, w := range vocab {
		chunks = append(chunks, model.Chunk{DocID: id, ChunkID: model.BuildChunkID(i+1, 0), PageNum: i + 1, Text: w})
	}
	_, err := f.svc.Ingest(ctx, id, chunks)
	require.NoError(t, err)

	hits, err := NewRetriever(f.store, f.embedder, 3).Retrieve(ctx, id, "gamma")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	require.Equal(t, 3, hits[0].PageNum)
	for i := 1; i < len(hits); i++ {
		require.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits, err = NewRetriever(f.store, f.embedder, 50).Retrieve(ctx, id, "gamma")
	require.NoError(t, err)
	require.Len(t, hits, len(vocab))
}
