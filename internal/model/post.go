package model

import "time"

// Post はユーザーが投稿したブログ記事を表す。
// Slugは作成時に確定し、以後変更されない公開ルックアップキー。
// UserIDは作成時に確定し、記事の所有者は変わらない。
type Post struct {
	ID        string
	Title     string
	Content   string
	Slug      string
	UserID    string
	CreatedAt time.Time
}

// PostWithAuthor は記事と投稿者のユーザー名を結合したビュー。
// 記事詳細APIのレスポンスに使用する。
type PostWithAuthor struct {
	Post
	AuthorUsername string
}
