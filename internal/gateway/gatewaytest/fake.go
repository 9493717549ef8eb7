// Package gatewaytest provides an in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"sync"

	"github.com/Guizzs26/attendance_poll_bot/internal/gateway"
)

type Post struct {
	Channel string
	Message gateway.Message
}

type Upload struct {
	Channel string
	Path    string
	Caption string
}

// Fake records every outbound call. PostErr and UploadErr, when set, are
// returned after the call is recorded.
type Fake struct {
	mu        sync.Mutex
	posts     []Post
	uploads   []Upload
	PostErr   error
	UploadErr error
}

func (f *Fake) PostMessage(_ context.Context, channel string, msg gateway.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, Post{Channel: channel, Message: msg})
	return f.PostErr
}

func (f *Fake) UploadFile(_ context.Context, channel, path, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, Upload{Channel: channel, Path: path, Caption: caption})
	return f.UploadErr
}

func (f *Fake) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Post(nil), f.posts...)
}

func (f *Fake) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

// LastText returns the text of the most recent post, or "" when nothing was sent.
func (f *Fake) LastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.posts) == 0 {
		return ""
	}
	return f.posts[len(f.posts)-1].Message.Text
}
