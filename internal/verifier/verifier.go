package verifier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"airdrop_backend/internal/model"
	"airdrop_backend/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrInvalidPostURL   = errors.New("invalid post url")
	ErrUsernameMismatch = errors.New("post author does not match username")
	ErrHashtagMismatch  = errors.New("post hashtags do not match campaign")
	ErrMessageMissing   = errors.New("post text does not contain campaign message")
)

type PostSource interface {
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
}

type Verifier struct {
	posts   PostSource
	timeout time.Duration
}

func New(posts PostSource, timeout time.Duration) *Verifier {
	return &Verifier{
		posts:   posts,
		timeout: timeout,
	}
}

// Verify reports whether the post at postURL was written by claimedUsername
// and carries the campaign message and hashtags. Every failure, including
// network errors, is reported as false.
func (v *Verifier) Verify(ctx context.Context, postURL, claimedUsername, requiredMessage string, requiredHashtags []string) bool {
	err := v.Check(ctx, postURL, claimedUsername, requiredMessage, requiredHashtags)
	if err != nil {
		logger.Logger().Info("post verification denied",
			zap.String("post_url", postURL),
			zap.String("username", claimedUsername),
			zap.Error(err))
		return false
	}
	return true
}

// Check is Verify with the reason for a denial.
func (v *Verifier) Check(ctx context.Context, postURL, claimedUsername, requiredMessage string, requiredHashtags []string) error {
	author, id, err := ParsePostURL(postURL)
	if err != nil {
		return err
	}

	if author != claimedUsername {
		return fmt.Errorf("%w: %q != %q", ErrUsernameMismatch, author, claimedUsername)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	post, err := v.posts.GetPostByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch post %s: %w", id, err)
	}

	if !HashtagsMatch(post.Hashtags, requiredHashtags) {
		return ErrHashtagMismatch
	}

	if !strings.Contains(post.Text, requiredMessage) {
		return ErrMessageMissing
	}

	return nil
}

// ParsePostURL extracts the author and the post id from a post url shaped like
// https://x.com/{author}/status/{id}.
func ParsePostURL(postURL string) (author, id string, err error) {
	u, err := url.Parse(postURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidPostURL, err)
	}

	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segments) < 3 {
		return "", "", ErrInvalidPostURL
	}

	id = segments[len(segments)-1]
	if id == "" {
		return "", "", fmt.Errorf("%w: empty post id", ErrInvalidPostURL)
	}

	return segments[len(segments)-3], id, nil
}

// HashtagsMatch compares required tags with the post's tags position by
// position. Every required tag must be present at its index.
func HashtagsMatch(postTags, required []string) bool {
	for i, tag := range required {
		if i >= len(postTags) || postTags[i] != tag {
			return false
		}
	}
	return true
}
