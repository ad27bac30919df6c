package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/apperr"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

// conflictingComments fails the next `failures` saves with a version conflict.
type conflictingComments struct {
	CommentStore
	failures int
	finds    int
}

func (s *conflictingComments) FindByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	s.finds++
	return s.CommentStore.FindByID(ctx, id)
}

func (s *conflictingComments) Update(ctx context.Context, c *models.Comment) error {
	if s.failures > 0 {
		s.failures--
		return errors.Wrap(repository.ErrVersionConflict, "comments.update")
	}
	return s.CommentStore.Update(ctx, c)
}

func TestCommentWritesRetryVersionConflicts(t *testing.T) {
	for _, tc := range []struct {
		failures int
		wantErr  bool
	}{
		{failures: 0},
		{failures: 1},
		{failures: 2},
		{failures: 3, wantErr: true},
		{failures: 5, wantErr: true},
	} {
		ctx := context.Background()
		store := &conflictingComments{}
		e := newEnvWith(t, func(c CommentStore) CommentStore {
			store.CommentStore = c
			return store
		})
		author, fan := e.user(t, "author"), e.user(t, "fan")
		post, err := e.Posts.Create(ctx, author, PostInput{Type: models.PostText, Content: "hello"}, nil)
		require.NoError(t, err)
		c, err := e.Comments.Create(ctx, author, post.ID, "first")
		require.NoError(t, err)

		store.failures = tc.failures
		store.finds = 0
		like, err := e.Comments.Like(ctx, fan.ID, c.ID)

		if tc.wantErr {
			require.ErrorIs(t, err, apperr.ErrVersionConflict, "failures=%d", tc.failures)
			de, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusConflict, de.Status)
			assert.Equal(t, maxAttempts, store.finds, "every attempt reloads")

			stored, err := store.CommentStore.FindByID(ctx, c.ID)
			require.NoError(t, err)
			assert.Zero(t, stored.LikesCount)
			continue
		}
		require.NoError(t, err, "failures=%d", tc.failures)
		assert.True(t, like.Liked)
		assert.EqualValues(t, 1, like.LikesCount)
		assert.Equal(t, tc.failures+1, store.finds, "every attempt reloads")
	}
}

// deletedMidway soft-deletes the comment right after the first read hands it out,
// the way a concurrent moderator delete would.
type deletedMidway struct {
	CommentStore
	armed bool
}

func (s *deletedMidway) FindByID(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	c, err := s.CommentStore.FindByID(ctx, id)
	if err != nil || !s.armed {
		return c, err
	}
	s.armed = false
	gone, err := s.CommentStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	gone.IsDeleted = true
	if err := s.CommentStore.Update(ctx, gone); err != nil {
		return nil, err
	}
	return c, nil
}

func TestLikeDoesNotResurrectDeletedComment(t *testing.T) {
	ctx := context.Background()
	store := &deletedMidway{}
	e := newEnvWith(t, func(c CommentStore) CommentStore {
		store.CommentStore = c
		return store
	})
	author, fan := e.user(t, "author"), e.user(t, "fan")
	post, err := e.Posts.Create(ctx, author, PostInput{Type: models.PostText, Content: "hello"}, nil)
	require.NoError(t, err)
	c, err := e.Comments.Create(ctx, author, post.ID, "soon gone")
	require.NoError(t, err)

	store.armed = true
	_, err = e.Comments.Like(ctx, fan.ID, c.ID)
	assert.ErrorIs(t, err, models.ErrCommentNotFound)

	stored, err := store.CommentStore.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	assert.Empty(t, stored.Likes)

	list, err := e.Comments.List(ctx, author, post.ID, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestEditAfterDeleteIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := &deletedMidway{}
	e := newEnvWith(t, func(c CommentStore) CommentStore {
		store.CommentStore = c
		return store
	})
	author := e.user(t, "author")
	post, err := e.Posts.Create(ctx, author, PostInput{Type: models.PostText, Content: "hello"}, nil)
	require.NoError(t, err)
	c, err := e.Comments.Create(ctx, author, post.ID, "draft")
	require.NoError(t, err)

	store.armed = true
	_, err = e.Comments.Update(ctx, author.ID, c.ID, "rewritten")
	assert.ErrorIs(t, err, models.ErrCommentNotFound)

	stored, err := store.CommentStore.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, "draft", stored.Text)
}
