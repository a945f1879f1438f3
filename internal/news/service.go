package news

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pders01/newsd/internal/auth"
	"github.com/pders01/newsd/internal/feed"
	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/search"
	"github.com/pders01/newsd/internal/storage"
	"github.com/pders01/newsd/internal/validation"
)

// DefaultPreferences are given to accounts that sign up without any.
var DefaultPreferences = []string{"movies", "comics"}

// Deps are the collaborators of a Service. Cache and Tokens are required.
type Deps struct {
	Cache    *feed.Cache
	Tokens   *auth.Tokens
	Accounts *storage.AccountStore
	Marks    *storage.MarkStore
	// Ranker serves ranked search; defaults to the index-free engine.
	Ranker   search.Searcher
	Activity *ActivityTracker

	DefaultPreferences []string
	// DefaultTopic is refreshed for searches by users without preferences.
	DefaultTopic string
	BcryptCost   int
}

// Service implements the user-facing news operations. Every operation
// resolves the caller's account before it touches the cache.
type Service struct {
	cache    *feed.Cache
	tokens   *auth.Tokens
	accounts *storage.AccountStore
	marks    *storage.MarkStore
	ranker   search.Searcher
	activity *ActivityTracker

	defaultPreferences []string
	defaultTopic       string
	bcryptCost         int
}

func NewService(d Deps) (*Service, error) {
	if d.Cache == nil {
		return nil, fmt.Errorf("news: cache is required")
	}
	if d.Tokens == nil {
		return nil, fmt.Errorf("news: token service is required")
	}
	if d.Accounts == nil {
		d.Accounts = storage.NewAccountStore()
	}
	if d.Marks == nil {
		d.Marks = storage.NewMarkStore()
	}
	if d.Ranker == nil {
		d.Ranker = search.NewEngine()
	}
	if d.DefaultTopic == "" {
		d.DefaultTopic = feed.DefaultTopic
	}
	if d.Activity == nil {
		d.Activity = NewActivityTracker(d.DefaultTopic)
	}
	if d.DefaultPreferences == nil {
		d.DefaultPreferences = DefaultPreferences
	}

	return &Service{
		cache:              d.Cache,
		tokens:             d.Tokens,
		accounts:           d.Accounts,
		marks:              d.Marks,
		ranker:             d.Ranker,
		activity:           d.Activity,
		defaultPreferences: append([]string(nil), d.DefaultPreferences...),
		defaultTopic:       d.DefaultTopic,
		bcryptCost:         d.BcryptCost,
	}, nil
}

func (s *Service) Cache() *feed.Cache { return s.cache }

func (s *Service) Accounts() *storage.AccountStore { return s.accounts }

func (s *Service) Activity() *ActivityTracker { return s.activity }

// resolve maps an authenticated email to its account.
func (s *Service) resolve(email string) (storage.User, error) {
	u, err := s.accounts.GetUser(email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return storage.User{}, ErrUnauthorized
	}
	if err != nil {
		return storage.User{}, err
	}
	s.activity.Record(u.Topics())
	return u, nil
}

// GetNews returns the cached articles in the user's preferred categories,
// refreshing the cache first when it is stale.
func (s *Service) GetNews(ctx context.Context, email string) ([]storage.Article, error) {
	u, err := s.resolve(email)
	if err != nil {
		return nil, err
	}
	topics := u.Topics()
	if len(topics) == 0 {
		return nil, ErrNoPreferences
	}

	snap := s.cache.EnsureFresh(ctx, topics)
	return search.FilterByPreferences(snap, topics), nil
}

func (s *Service) MarkRead(email, articleID string) error {
	if _, err := s.resolve(email); err != nil {
		return err
	}
	s.marks.MarkArticleRead(email, articleID)
	return nil
}

func (s *Service) MarkFavorite(email, articleID string) error {
	if _, err := s.resolve(email); err != nil {
		return err
	}
	s.marks.MarkArticleFavorite(email, articleID)
	return nil
}

// GetRead resolves the user's read marks against the current snapshot
// without refreshing. Marks whose article is gone are skipped.
func (s *Service) GetRead(email string) ([]storage.Article, error) {
	if _, err := s.resolve(email); err != nil {
		return nil, err
	}
	return s.cache.Snapshot().Select(s.marks.ReadIDs(email)), nil
}

// GetFavorites is GetRead for favorites.
func (s *Service) GetFavorites(email string) ([]storage.Article, error) {
	if _, err := s.resolve(email); err != nil {
		return nil, err
	}
	return s.cache.Snapshot().Select(s.marks.FavoriteIDs(email)), nil
}

// searchSnapshot validates the keyword and returns a fresh enough snapshot.
// Users without preferences refresh the default topic.
func (s *Service) searchSnapshot(ctx context.Context, email, keyword string) (*storage.Snapshot, string, error) {
	u, err := s.resolve(email)
	if err != nil {
		return nil, "", err
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, "", ErrMissingKeyword
	}

	topics := u.Topics()
	if len(topics) == 0 {
		topics = []string{s.defaultTopic}
	}
	return s.cache.EnsureFresh(ctx, topics), keyword, nil
}

// SearchNews returns every cached article whose title or description
// contains keyword, regardless of the user's preferences.
func (s *Service) SearchNews(ctx context.Context, email, keyword string) ([]storage.Article, error) {
	snap, keyword, err := s.searchSnapshot(ctx, email, keyword)
	if err != nil {
		return nil, err
	}
	return search.SearchByKeyword(snap, keyword), nil
}

// SearchNewsRanked is SearchNews ordered by relevance instead of snapshot order.
func (s *Service) SearchNewsRanked(ctx context.Context, email, keyword string, limit int) ([]storage.Article, error) {
	snap, keyword, err := s.searchSnapshot(ctx, email, keyword)
	if err != nil {
		return nil, err
	}
	results, err := s.ranker.Search(snap, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("ranked search: %w", err)
	}
	out := make([]storage.Article, 0, len(results))
	for _, r := range results {
		out = append(out, r.Article)
	}
	return out, nil
}

// SignupRequest carries the signup form. A nil Preferences gets the default
// set; an empty, non-nil one is stored as is.
type SignupRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Preferences []string `json:"preferences"`
}

func (s *Service) Signup(req SignupRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return ErrMissingFields
	}
	email, err := validation.NormalizeEmail(req.Email)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	prefs := req.Preferences
	if prefs == nil {
		prefs = s.defaultPreferences
	}
	prefs, err = validation.NormalizeTopics(prefs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.accounts.CreateUser(storage.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Preferences:  prefs,
	}); err != nil {
		return err
	}
	logging.Infof("account created for %s", email)
	return nil
}

// Login checks credentials and returns a signed token.
func (s *Service) Login(email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", ErrMissingFields
	}
	email, err := validation.NormalizeEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	u, err := s.accounts.GetUser(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if !auth.CheckPasswordHash(password, u.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.GenerateJWT(u.Email)
}

// Authenticate verifies a bearer token and returns the email it names.
func (s *Service) Authenticate(token string) (string, error) {
	email, err := s.tokens.VerifyJWT(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return email, nil
}

func (s *Service) GetPreferences(email string) ([]string, error) {
	u, err := s.resolve(email)
	if err != nil {
		return nil, err
	}
	if u.Preferences == nil {
		return []string{}, nil
	}
	return u.Preferences, nil
}

// UpdatePreferences replaces the user's preferences. A nil slice is rejected;
// an empty one clears them.
func (s *Service) UpdatePreferences(email string, preferences []string) error {
	if _, err := s.resolve(email); err != nil {
		return err
	}
	if preferences == nil {
		return fmt.Errorf("%w: preferences must be an array", ErrInvalidInput)
	}
	prefs, err := validation.NormalizeTopics(preferences)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := s.accounts.UpdatePreferences(email, prefs); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}
