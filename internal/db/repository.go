package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pulsegram/feedengine/internal/feed"
	"github.com/pulsegram/feedengine/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ContentRepository serves candidate content pages. It implements
// feed.ContentSource with keyset pagination over (created_at, id).
type ContentRepository struct {
	*Repository
}

// NewContentRepository creates a new content repository
func NewContentRepository(repo *Repository) *ContentRepository {
	return &ContentRepository{Repository: repo}
}

// AffinityPage returns items owned by any of ownerIDs, newest first, older
// than pos. The caller chunks ownerIDs to the store's batch cap.
func (r *ContentRepository) AffinityPage(ctx context.Context, ownerIDs []int64, pos feed.Position, limit int) ([]*models.ContentItem, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("owner_id IN ?", ownerIDs)
	query = applyPosition(query, pos)

	var items []*models.ContentItem
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DiscoveryPage returns globally recent items, newest first, older than pos.
// An empty kind matches all content kinds.
func (r *ContentRepository) DiscoveryPage(ctx context.Context, kind string, pos feed.Position, limit int) ([]*models.ContentItem, error) {
	query := r.db.WithContext(ctx).Model(&models.ContentItem{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	query = applyPosition(query, pos)

	var items []*models.ContentItem
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// applyPosition adds the keyset continuation predicate. Row-value comparison
// matches the (created_at DESC, id DESC) sort exactly.
func applyPosition(query *gorm.DB, pos feed.Position) *gorm.DB {
	if pos.IsZero() {
		return query
	}
	return query.Where("(created_at, id) < (?, ?)", pos.Before, pos.LastID)
}

// GetByID retrieves a content item by ID
func (r *ContentRepository) GetByID(ctx context.Context, id int64) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// FollowRepository provides follow-graph database operations. It implements
// feed.FollowSource.
type FollowRepository struct {
	*Repository
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(repo *Repository) *FollowRepository {
	return &FollowRepository{Repository: repo}
}

// Exists reports whether followerID follows followingID
func (r *FollowRepository) Exists(ctx context.Context, followerID, followingID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FollowEdge{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FollowSet returns the IDs of every account the viewer follows
func (r *FollowRepository) FollowSet(ctx context.Context, viewerID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.FollowEdge{}).
		Where("follower_id = ?", viewerID).
		Order("following_id").
		Pluck("following_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Create inserts a follow edge. Inserting an existing edge is a no-op.
func (r *FollowRepository) Create(ctx context.Context, followerID, followingID int64) error {
	edge := models.FollowEdge{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Create(&edge).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// Delete removes a follow edge
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID int64) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.FollowEdge{}).Error
}

// InteractionRepository provides interaction database operations. It
// implements feed.InteractionSource and records delegated view side effects.
type InteractionRepository struct {
	*Repository
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(repo *Repository) *InteractionRepository {
	return &InteractionRepository{Repository: repo}
}

// LikedItemIDs returns the set of item IDs the viewer has liked
func (r *InteractionRepository) LikedItemIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error) {
	return r.itemIDs(ctx, viewerID, models.InteractionLike)
}

// ViewedItemIDs returns the set of item IDs the viewer has viewed. Empty when
// view tracking is absent upstream.
func (r *InteractionRepository) ViewedItemIDs(ctx context.Context, viewerID int64) (map[int64]struct{}, error) {
	return r.itemIDs(ctx, viewerID, models.InteractionView)
}

func (r *InteractionRepository) itemIDs(ctx context.Context, viewerID int64, kind string) (map[int64]struct{}, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Interaction{}).
		Where("user_id = ? AND kind = ?", viewerID, kind).
		Pluck("item_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// RecordView stores a view interaction on behalf of the presentation layer
func (r *InteractionRepository) RecordView(ctx context.Context, viewerID, itemID int64) error {
	return r.db.WithContext(ctx).Create(&models.Interaction{
		UserID:    viewerID,
		ItemID:    itemID,
		Kind:      models.InteractionView,
		CreatedAt: time.Now().UTC(),
	}).Error
}

// AccountRepository provides account database operations. It implements
// feed.ProfileSource.
type AccountRepository struct {
	*Repository
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(repo *Repository) *AccountRepository {
	return &AccountRepository{Repository: repo}
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// IsPrivate returns the account-level privacy flag. Unknown accounts are
// reported private, the safer default.
func (r *AccountRepository) IsPrivate(ctx context.Context, ownerID int64) (bool, error) {
	account, err := r.GetByID(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if account == nil {
		return true, nil
	}
	return account.IsPrivate, nil
}
