package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile はユーザーの学生プロフィールを表す。ユーザー作成時に同時に作成される。
type Profile struct {
	UserID        string
	PhotoURL      string
	Bio           string
	Course        string
	Year          int
	Rating        float64
	SkillsOffered string
	SkillsWanted  string
	UpdatedAt     time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Actor は操作を実行する認証済みユーザーを表す。
type Actor struct {
	UserID  string
	IsStaff bool
}
