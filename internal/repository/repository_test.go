package repository

import (
	"context"
	"testing"
	"time"

	"appx/internal/models"
	"appx/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `a\_b\%c\\d`, escapeLike(`a_b%c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestClampLimit(t *testing.T) {
	t.Parallel()
	assert.Equal(t, defaultPageSize, clampLimit(0))
	assert.Equal(t, defaultPageSize, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxPageSize, clampLimit(1000))
	assert.Equal(t, 0, clampOffset(-1))
}

func TestUserRepository_CreateAddsPreference(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := NewUserRepository(db)
	prefs := NewPreferenceRepository(db)
	ctx := context.Background()

	u := &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, u))

	pref, err := prefs.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.True(t, pref.NotificationsEnabled)

	err = users.Create(ctx, &models.User{Name: "Ana 2", Email: "ana@example.com", PasswordHash: "x"})
	assert.Equal(t, models.CodeConflict, err.(*models.AppError).Code)

	var count int64
	require.NoError(t, db.Model(&models.NotificationPreference{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "a failed registration leaves no preference row")
}

func TestUserRepository_FindByHandle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := testutil.CreateUser(t, db, "Bob", "bob@example.com")
	testutil.CreateUser(t, db, "Other Bob", "BOB@another.org")
	underscore := testutil.CreateUser(t, db, "Under", "b_b@example.com")
	testutil.CreateUser(t, db, "Bxb", "bxb@example.com")

	tests := []struct {
		handle string
		want   uint
	}{
		{"bob", first.ID},
		{"BoB", first.ID},
		{"b_b", underscore.ID},
		{"bo", 0},
		{"ghost", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			got, err := repo.FindByHandle(ctx, tt.handle)
			require.NoError(t, err)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestUserRepository_UpdateAndSearch(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "Carla", "carla@example.com")
	testutil.CreateUser(t, db, "Marcos", "marcos@example.com")

	u.Name = "Carla Souza"
	u.Bio = "hi"
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Carla Souza", got.Name)
	assert.Equal(t, "hi", got.Bio)

	err = repo.Update(ctx, &models.User{ID: 999, Name: "x"})
	assert.Equal(t, models.CodeNotFound, err.(*models.AppError).Code)

	found, err := repo.Search(ctx, "SOUZA", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, u.ID, found[0].ID)

	none, err := repo.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRelationshipRepository_FollowBlockUnblock(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRelationshipRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "A", "a@example.com")
	b := testutil.CreateUser(t, db, "B", "b@example.com")

	_, created, err := repo.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = repo.Follow(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, created)
	edge, created, err := repo.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err, "following twice is a no-op")
	assert.False(t, created)
	assert.False(t, edge.Blocked)

	counts, err := repo.Counts(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, RelationCounts{Followers: 1, Following: 1}, counts)

	edge, err = repo.Block(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, edge.Blocked)

	for _, pair := range [][2]uint{{a.ID, b.ID}, {b.ID, a.ID}} {
		_, created, err = repo.Follow(ctx, pair[0], pair[1])
		require.Error(t, err)
		assert.Equal(t, models.CodeForbidden, err.(*models.AppError).Code)
		assert.False(t, created)
	}

	reverse, err := repo.GetEdge(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, reverse, "blocking removes the reverse follow")

	blocked, err := repo.IsBlockedEither(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	removed, err := repo.Unfollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed, "unfollow never removes a block")

	removed, err = repo.Unblock(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, removed, "only the blocker can unblock")

	removed, err = repo.Unblock(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	edge, err = repo.GetEdge(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, edge)
}

func TestRelationshipRepository_FollowMissingUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRelationshipRepository(db)
	a := testutil.CreateUser(t, db, "A", "a@example.com")

	_, _, err := repo.Follow(context.Background(), a.ID, 4242)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, err.(*models.AppError).Code)
}

func TestRelationshipRepository_FollowersFollowing(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRelationshipRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "A", "a@example.com")
	b := testutil.CreateUser(t, db, "B", "b@example.com")
	c := testutil.CreateUser(t, db, "C", "c@example.com")

	_, _, err := repo.Follow(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = repo.Block(ctx, c.ID, a.ID)
	require.NoError(t, err)

	followers, err := repo.Followers(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, b.ID, followers[0].ID)

	following, err := repo.Following(ctx, c.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, following, "blocking edges are not listed")
}

func TestPostRepository_FeedExcludesBlocked(t *testing.T) {
	db := testutil.NewTestDB(t)
	posts := NewPostRepository(db)
	rels := NewRelationshipRepository(db)
	ctx := context.Background()

	viewer := testutil.CreateUser(t, db, "Viewer", "viewer@example.com")
	blockedByViewer := testutil.CreateUser(t, db, "Blocked", "blocked@example.com")
	blocksViewer := testutil.CreateUser(t, db, "Blocker", "blocker@example.com")
	friend := testutil.CreateUser(t, db, "Friend", "friend@example.com")

	testutil.CreatePost(t, db, blockedByViewer.ID, "one")
	testutil.CreatePost(t, db, blocksViewer.ID, "two")
	visible := testutil.CreatePost(t, db, friend.ID, "three")

	_, err := rels.Block(ctx, viewer.ID, blockedByViewer.ID)
	require.NoError(t, err)
	_, err = rels.Block(ctx, blocksViewer.ID, viewer.ID)
	require.NoError(t, err)

	feed, err := posts.List(ctx, viewer.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, visible.ID, feed[0].ID)
	require.NotNil(t, feed[0].Author)
	assert.Equal(t, "Friend", feed[0].Author.Name)
	assert.NotNil(t, feed[0].Mentions)
	assert.NotNil(t, feed[0].Media)

	anonymous, err := posts.List(ctx, 0, 20, 0)
	require.NoError(t, err)
	assert.Len(t, anonymous, 3)

	_, err = posts.GetByID(ctx, visible.ID-1, viewer.ID)
	assert.Equal(t, models.CodeNotFound, err.(*models.AppError).Code)

	byAuthor, err := posts.ListByAuthor(ctx, blockedByViewer.ID, viewer.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, byAuthor)
}

func TestPostRepository_DetailsAndMentions(t *testing.T) {
	db := testutil.NewTestDB(t)
	posts := NewPostRepository(db)
	reactions := NewReactionRepository(db)
	mentions := NewMentionRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Author", "author@example.com")
	fan := testutil.CreateUser(t, db, "Fan", "fan@example.com")
	post := testutil.CreatePost(t, db, author.ID, "hello @fan")

	_, err := reactions.Like(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: fan.ID, Text: "hi"}))
	_, err = mentions.Create(ctx, post.ID, fan.ID)
	require.NoError(t, err)

	got, err := posts.GetByID(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 1, got.CommentsCount)
	assert.True(t, got.Liked)
	assert.Equal(t, []models.MentionRef{{UserID: fan.ID, Handle: "fan"}}, got.Mentions)

	got, err = posts.GetByID(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, got.Liked)
}

func TestPostRepository_Search(t *testing.T) {
	db := testutil.NewTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Author", "author@example.com")
	match := testutil.CreatePost(t, db, author.ID, "Praia no domingo")
	testutil.CreatePost(t, db, author.ID, "Trabalho")

	found, err := posts.Search(ctx, "praia", 0, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, match.ID, found[0].ID)
}

func TestPostRepository_UpdateAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	posts := NewPostRepository(db)
	reactions := NewReactionRepository(db)
	notifications := NewNotificationRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Author", "author@example.com")
	other := testutil.CreateUser(t, db, "Other", "other@example.com")
	post := testutil.CreatePost(t, db, author.ID, "draft")

	ok, err := posts.UpdateText(ctx, post.ID, other.ID, "hijack")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = posts.UpdateText(ctx, post.ID, author.ID, "final")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := posts.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Text)
	assert.True(t, got.Edited)

	_, err = reactions.Like(ctx, other.ID, post.ID)
	require.NoError(t, err)
	origin := post.ID
	require.NoError(t, notifications.Create(ctx, &models.Notification{
		RecipientID: author.ID,
		Kind:        models.NotificationLike,
		Message:     models.NotificationLike.Message(other.Name),
		OriginID:    &origin,
	}))

	ok, err = posts.Delete(ctx, post.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = posts.Delete(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = posts.GetAuthorID(ctx, post.ID)
	assert.Equal(t, models.CodeNotFound, err.(*models.AppError).Code)

	var reactionCount int64
	require.NoError(t, db.Model(&models.Reaction{}).Count(&reactionCount).Error)
	assert.Zero(t, reactionCount)

	kept := testutil.Notifications(t, db, author.ID)
	require.Len(t, kept, 1)
	require.NotNil(t, kept[0].OriginID)
	assert.Equal(t, post.ID, *kept[0].OriginID)
}

func TestReactionRepository_LikeIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "U", "u@example.com")
	post := testutil.CreatePost(t, db, u.ID, "x")

	created, err := repo.Like(ctx, u.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Like(ctx, u.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := repo.Unlike(ctx, u.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Unlike(ctx, u.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMentionRepository_CreateIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewMentionRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "U", "u@example.com")
	post := testutil.CreatePost(t, db, u.ID, "@u")

	created, err := repo.Create(ctx, post.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, post.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, created)

	ids, err := repo.ListUserIDs(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{u.ID}, ids)
}

func TestMentionRepository_DeleteExcept(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewMentionRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "A", "a@example.com")
	b := testutil.CreateUser(t, db, "B", "b@example.com")
	post := testutil.CreatePost(t, db, a.ID, "@a @b")
	other := testutil.CreatePost(t, db, a.ID, "@b")
	for _, pair := range [][2]uint{{post.ID, a.ID}, {post.ID, b.ID}, {other.ID, b.ID}} {
		_, err := repo.Create(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	n, err := repo.DeleteExcept(ctx, post.ID, []uint{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	ids, err := repo.ListUserIDs(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, ids)

	n, err = repo.DeleteExcept(ctx, post.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	ids, err = repo.ListUserIDs(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.ListUserIDs(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, ids, "other posts keep their mentions")
}

func TestCommentRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "U", "u@example.com")
	post := testutil.CreatePost(t, db, u.ID, "x")

	first := &models.Comment{PostID: post.ID, AuthorID: u.ID, Text: "first"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: u.ID, Text: "second"}))

	list, err := repo.ListByPost(ctx, post.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Text)
	require.NotNil(t, list[0].Author)
	assert.Equal(t, "U", list[0].Author.Name)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Text)

	err = repo.Create(ctx, &models.Comment{PostID: 999, AuthorID: u.ID, Text: "orphan"})
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, err.(*models.AppError).Code)
}

func TestNotificationRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "Owner", "owner@example.com")
	stranger := testutil.CreateUser(t, db, "Stranger", "stranger@example.com")

	for _, kind := range []models.NotificationKind{models.NotificationFollow, models.NotificationLike} {
		require.NoError(t, repo.Create(ctx, &models.Notification{
			RecipientID: owner.ID,
			Kind:        kind,
			Message:     kind.Message("Stranger"),
		}))
	}

	list, err := repo.ListByRecipient(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.NotificationLike, list[0].Kind, "newest first")

	unread, err := repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	ok, err := repo.MarkRead(ctx, list[0].ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, ok, "recipients can only mark their own notifications")

	ok, err = repo.MarkRead(ctx, list[0].ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	unread, err = repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	n, err := repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err = repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestPasswordResetRepository_Consume(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPasswordResetRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	u := testutil.CreateUser(t, db, "U", "u@example.com")
	require.NoError(t, repo.Create(ctx, &models.PasswordReset{UserID: u.ID, Token: "live", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.PasswordReset{UserID: u.ID, Token: "stale", ExpiresAt: now.Add(-time.Minute)}))

	_, ok, err := repo.Consume(ctx, "stale", now)
	require.NoError(t, err)
	assert.False(t, ok)

	userID, ok, err := repo.Consume(ctx, "live", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, u.ID, userID)

	_, ok, err = repo.Consume(ctx, "live", now)
	require.NoError(t, err)
	assert.False(t, ok, "tokens are single use")
}
