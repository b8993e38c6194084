package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// NoteUseCase owns notes and raw memory chunks.
type NoteUseCase struct {
	uc *UseCases
}

func newNoteUseCase(uc *UseCases) *NoteUseCase {
	return &NoteUseCase{uc: uc}
}

func (x *NoteUseCase) Create(ctx context.Context, title, content string, metadata map[string]string) (*model.Note, error) {
	return x.uc.memory.AddNote(ctx, &model.Note{
		ID:       types.NewNoteID(),
		Title:    title,
		Content:  content,
		Metadata: metadata,
	})
}

func (x *NoteUseCase) Get(ctx context.Context, id types.NoteID) (*model.Note, error) {
	return x.uc.memory.GetNote(ctx, id)
}

// Update rewrites an existing note. A missing ID is an error rather than an
// implicit create.
func (x *NoteUseCase) Update(ctx context.Context, id types.NoteID, title, content string, metadata map[string]string) (*model.Note, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if _, err := x.uc.memory.GetNote(ctx, id); err != nil {
		return nil, err
	}
	return x.uc.memory.AddNote(ctx, &model.Note{
		ID:       id,
		Title:    title,
		Content:  content,
		Metadata: metadata,
	})
}

func (x *NoteUseCase) Delete(ctx context.Context, id types.NoteID) (bool, error) {
	return x.uc.memory.DeleteNote(ctx, id)
}

func (x *NoteUseCase) List(ctx context.Context) ([]*model.NoteSummary, error) {
	return x.uc.memory.ListNotes(ctx)
}

// AddToMemory stores a raw chunk. An empty source type defaults to manual.
func (x *NoteUseCase) AddToMemory(ctx context.Context, text string, sourceType types.SourceType, metadata map[string]string) (*model.MemoryChunk, error) {
	if text == "" {
		return nil, goerr.Wrap(types.ErrValidation, "memory text must not be empty")
	}
	if sourceType == "" {
		sourceType = types.SourceManual
	}
	return x.uc.memory.AddChunk(ctx, &model.MemoryChunk{
		Text:       text,
		SourceType: sourceType,
		Metadata:   metadata,
	})
}

func (x *NoteUseCase) SearchMemory(ctx context.Context, query string, limit int, filter string) ([]*model.MemoryHit, error) {
	return x.uc.memory.Search(ctx, query, limit, filter)
}
