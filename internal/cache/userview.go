package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User-view specialization. Projections are cached under
// {prefix}:user_view:{user_id}:{view_type}[:{view_id}] and tagged so that
// invalidation can target one user, one view family, one user+view pair,
// or every projection that embedded a given entity.

// UserViewOptions refine a SetUserView call.
type UserViewOptions struct {
	// ViewID distinguishes parameterized variants of one view type.
	ViewID string
	// TTL bounds the stale window; zero means DefaultUserViewTTL.
	TTL time.Duration
	// RelatedIDs pins invalidation to the entities the projection was
	// derived from; each pair becomes the tag "{type}:{id}".
	RelatedIDs map[string]string
	// BucketTags are additional coarse tags (e.g. student_view:{course_id})
	// shared by every projection over the same course.
	BucketTags []string
}

// GetUserView reads a cached projection into dst, returning true on a hit.
func (c *Cache) GetUserView(ctx context.Context, userID uuid.UUID, viewType, viewID string, dst any) bool {
	key := c.userViewKey(userID.String(), viewType, viewID)
	if c.GetByKey(ctx, key, dst) {
		c.hit("user_view")
		return true
	}
	c.miss("user_view")
	return false
}

// SetUserView stores a projection with the canonical user-view tag set:
//
//	user:{user_id}
//	user:{user_id}:{view_type}
//	view:{view_type}
//	user:{user_id}:{view_type}:{view_id}   (when a view id is given)
//	{type}:{id}                            (for each related id)
//
// plus any bucket tags supplied by the caller.
func (c *Cache) SetUserView(ctx context.Context, userID uuid.UUID, viewType string, data any, opts UserViewOptions) error {
	uid := userID.String()
	key := c.userViewKey(uid, viewType, opts.ViewID)

	tags := []string{
		"user:" + uid,
		"user:" + uid + ":" + viewType,
		"view:" + viewType,
	}
	if opts.ViewID != "" {
		tags = append(tags, "user:"+uid+":"+viewType+":"+opts.ViewID)
	}
	for entityType, id := range opts.RelatedIDs {
		tags = append(tags, entityType+":"+id)
	}
	tags = append(tags, opts.BucketTags...)

	return c.SetWithTags(ctx, key, data, tags, opts.TTL)
}

// UserViewFilter selects which projections InvalidateUserViews removes.
// Nil/empty fields widen the selection.
type UserViewFilter struct {
	UserID     *uuid.UUID
	ViewType   string
	EntityType string
	EntityID   string
}

// InvalidateUserViews purges the projections matching the filter:
// entity type+id beats user+view beats user beats view-family scope.
func (c *Cache) InvalidateUserViews(ctx context.Context, f UserViewFilter) {
	switch {
	case f.EntityType != "" && f.EntityID != "":
		c.InvalidateTags(ctx, f.EntityType+":"+f.EntityID)
	case f.UserID != nil && f.ViewType != "":
		c.InvalidateTags(ctx, "user:"+f.UserID.String()+":"+f.ViewType)
	case f.UserID != nil:
		c.InvalidateTags(ctx, "user:"+f.UserID.String())
	case f.ViewType != "":
		c.InvalidateTags(ctx, "view:"+f.ViewType)
	}
}
