// Package loader turns a directory of text, Markdown and HTML files into
// published posts.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperengineering/postrater/internal/types"
	"github.com/hyperengineering/postrater/internal/validation"
)

// AuthorAddresses are assigned to loaded posts in rotation.
var AuthorAddresses = []string{
	"author_one@example.com",
	"author_two@example.com",
	"author_three@example.com",
	"author_four@example.com",
	"author_five@example.com",
	"author_six@example.com",
}

// PostInserter stores posts atomically.
type PostInserter interface {
	InsertPosts(ctx context.Context, posts []types.NewPost) ([]int64, error)
}

// SkippedFile is a file that did not become a post.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// LoadResult reports what LoadDir inserted and skipped.
type LoadResult struct {
	IDs     []int64       `json:"ids"`
	Skipped []SkippedFile `json:"skipped,omitempty"`
}

// LoadDir reads every supported file in dir (not recursively) in name order
// and inserts the resulting posts in a single call. Empty and invalid files
// are skipped. Nothing is inserted when the insert fails.
func LoadDir(ctx context.Context, dir string, inserter PostInserter) (*LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read posts directory: %w", err)
	}

	result := &LoadResult{IDs: []int64{}}
	var posts []types.NewPost
	idx := 0

	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		author := AuthorAddresses[idx%len(AuthorAddresses)]
		idx++

		post, reason, err := readPost(filepath.Join(dir, e.Name()), author)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			if errs := validation.ValidateNewPost(len(posts), *post); len(errs) > 0 {
				reason = errs[0].String()
			}
		}
		if reason != "" {
			slog.Warn("skipping file",
				"component", "loader",
				"file", e.Name(),
				"reason", reason,
			)
			result.Skipped = append(result.Skipped, SkippedFile{Name: e.Name(), Reason: reason})
			continue
		}
		posts = append(posts, *post)
	}

	if len(posts) == 0 {
		slog.Info("no posts to insert", "component", "loader", "dir", dir)
		return result, nil
	}

	ids, err := inserter.InsertPosts(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("insert %d posts: %w", len(posts), err)
	}
	result.IDs = ids

	slog.Info("posts loaded",
		"component", "loader",
		"dir", dir,
		"inserted", len(ids),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// readPost returns a skip reason instead of a post for empty files.
func readPost(path, author string) (*types.NewPost, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	content := strings.TrimSpace(string(data))
	if isHTML(path) {
		content, err = htmlText(data)
		if err != nil {
			return nil, "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	}
	if content == "" {
		return nil, "empty file", nil
	}

	name := filepath.Base(path)
	return &types.NewPost{
		Title:         strings.TrimSuffix(name, filepath.Ext(name)),
		Content:       content,
		Published:     true,
		AuthorAddress: author,
	}, "", nil
}

// htmlText extracts the visible body text of an HTML document with
// whitespace collapsed.
func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".html", ".htm":
		return true
	}
	return false
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}
