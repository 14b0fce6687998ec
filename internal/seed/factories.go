package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"appx/internal/models"
	"appx/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the Seeder and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	users repository.UserRepository
	hash  string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)

	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	// One hash serves every account; hashing per user dominates seeding time.
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	return &Factory{
		db:    db,
		opts:  opts,
		users: repository.NewUserRepository(db),
		hash:  string(hash),
	}, nil
}

func handlePart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildUser constructs a user whose email local part (its mention handle) is
// unique for n. It does not persist it.
func (f *Factory) BuildUser(n int, overrides ...func(*models.User)) *models.User {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	handle := fmt.Sprintf("%s_%s%d", handlePart(first), handlePart(last), n)

	user := &models.User{
		Name:         first + " " + last,
		Email:        handle + "@example.com",
		PasswordHash: f.hash,
		Bio:          gofakeit.Sentence(gofakeit.Number(4, 12)),
		Location:     gofakeit.City(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user together with its notification preference.
func (f *Factory) CreateUser(ctx context.Context, n int, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(n, overrides...)
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// PostText returns fake post text mentioning each of handles.
func (f *Factory) PostText(handles ...string) string {
	text := gofakeit.Sentence(gofakeit.Number(5, 16))
	for _, h := range handles {
		text += " @" + h
	}
	return text
}

// CommentText returns a short fake comment.
func (f *Factory) CommentText() string {
	return gofakeit.Sentence(gofakeit.Number(3, 10))
}

// Backdate moves a post's creation time to a random point within MaxDays.
func (f *Factory) Backdate(ctx context.Context, postID uint) error {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(gofakeit.Number(0, maxDays-1))*24*time.Hour +
		time.Duration(gofakeit.Number(0, 23))*time.Hour +
		time.Duration(gofakeit.Number(0, 59))*time.Minute

	return f.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id_pub = ?", postID).
		Update("criado_em", time.Now().Add(-back)).Error
}

// chance reports true with probability p.
func chance(p float32) bool {
	return gofakeit.Float32Range(0, 1) < p
}

// pick returns a random element of users other than exclude, or nil.
func pick(users []*models.User, exclude uint) *models.User {
	if len(users) < 2 {
		return nil
	}
	for {
		u := users[gofakeit.Number(0, len(users)-1)]
		if u.ID != exclude {
			return u
		}
	}
}

func randomUpTo(n int) int {
	return gofakeit.Number(0, n)
}
