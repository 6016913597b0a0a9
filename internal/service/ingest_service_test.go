package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carenest/carenest/internal/model"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
)

type fakeCreator struct {
	created []*model.Document
	err     error
}

func (f *fakeCreator) Create(ctx context.Context, doc *model.Document) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, doc)
	return nil
}

func TestIngestNote_FlattensMarkdown(t *testing.T) {
	creator := &fakeCreator{}
	s := NewIngestService(creator, nil, nil)

	doc, err := s.IngestNote(context.Background(),
		"Paced feeding",
		"# Paced feeding\n\nHold the bottle **horizontal** and pause often.\n\n- watch for cues\n- let baby set the pace",
		model.CategoryBreastfeeding,
		model.NewTags("feeding"),
		true,
	)
	require.NoError(t, err)
	require.Len(t, creator.created, 1)
	require.Equal(t, model.ChannelManualNote, doc.SourceChannel)
	require.Equal(t, model.ExtractionTextLayer, doc.ExtractionMethod)
	require.True(t, doc.IsActive)
	require.Contains(t, doc.Content, "Hold the bottle horizontal")
	require.Contains(t, doc.Content, "watch for cues")
	require.NotContains(t, doc.Content, "#")
	require.NotContains(t, doc.Content, "**")
}

func TestIngestNote_RejectsEmpty(t *testing.T) {
	s := NewIngestService(&fakeCreator{}, nil, nil)

	_, err := s.IngestNote(context.Background(), "  ", "content", model.CategoryOther, nil, false)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = s.IngestNote(context.Background(), "title", "   ", model.CategoryOther, nil, false)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestTitleFromFilename(t *testing.T) {
	require.Equal(t, "newborn sleep guide", titleFromFilename("newborn-sleep_guide.pdf"))
	require.Equal(t, "latch basics", titleFromFilename("/uploads/latch basics.PDF"))
	require.Equal(t, "Untitled document", titleFromFilename(".pdf"))
}
