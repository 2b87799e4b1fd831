package datasync

import (
	"context"

	"github.com/arvi1709/AI-library/internal/repository"
)

// Loader reads the current contents of a collection as seen by userID.
type Loader func(ctx context.Context, userID uint) (interface{}, error)

// Loaders maps collection names to their loaders.
type Loaders map[string]Loader

// Stores groups the repositories the collections are read from.
type Stores struct {
	Users    repository.UserRepository
	Stories  repository.StoryRepository
	Comments repository.CommentRepository
	Social   repository.SocialRepository
	Reports  repository.ReportRepository
	Empathy  repository.EmpathyRepository
}

// NewLoaders builds the loader for every default collection. Each loader
// returns the whole collection; there is no paging.
func NewLoaders(s Stores) Loaders {
	return Loaders{
		CollectionMe: func(ctx context.Context, userID uint) (interface{}, error) {
			return s.Users.GetWithGraph(ctx, userID)
		},
		CollectionUsers: func(ctx context.Context, _ uint) (interface{}, error) {
			return s.Users.ListWithGraph(ctx)
		},
		CollectionStories: func(ctx context.Context, _ uint) (interface{}, error) {
			return s.Stories.ListAll(ctx)
		},
		CollectionComments: func(ctx context.Context, _ uint) (interface{}, error) {
			return s.Comments.ListAll(ctx)
		},
		CollectionLikes: func(ctx context.Context, _ uint) (interface{}, error) {
			return s.Social.ListLikeRecords(ctx)
		},
		CollectionReports: func(ctx context.Context, _ uint) (interface{}, error) {
			return s.Reports.ListAll(ctx)
		},
		CollectionEmpathyRatings: func(ctx context.Context, _ uint) (interface{}, error) {
			return s.Empathy.ListAll(ctx)
		},
	}
}
