// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの種別を表す。HTTPステータスへの変換に使用する。
type ErrorKind string

const (
	// KindValidation は入力値が不正な場合のエラー種別。
	KindValidation ErrorKind = "validation"
	// KindAuthentication は認証に失敗した場合のエラー種別。
	KindAuthentication ErrorKind = "authentication"
	// KindAuthorization は操作権限がない場合のエラー種別。
	KindAuthorization ErrorKind = "authorization"
	// KindNotFound は対象が存在しない場合のエラー種別。
	KindNotFound ErrorKind = "not_found"
	// KindConflict は既存データと衝突する場合のエラー種別。
	KindConflict ErrorKind = "conflict"
	// KindInvalidTransition は現在の状態から遷移できない場合のエラー種別。
	KindInvalidTransition ErrorKind = "invalid_transition"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, skill, request, message, meeting, system
	Action   string    // ユーザー向け対処方法
	Kind     ErrorKind // エラー種別
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsKind はerrがAPIErrorであり、指定した種別であるかを判定する。
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// 定義済みエラーコード
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeUsernameTaken         = "USERNAME_TAKEN"
	ErrCodeSkillNotFound         = "SKILL_NOT_FOUND"
	ErrCodeSkillRequestNotFound  = "SKILL_REQUEST_NOT_FOUND"
	ErrCodeDuplicateSkillRequest = "DUPLICATE_SKILL_REQUEST"
	ErrCodeOwnSkillRequest       = "OWN_SKILL_REQUEST"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeReviewNotFound        = "REVIEW_NOT_FOUND"
	ErrCodeMessageNotFound       = "MESSAGE_NOT_FOUND"
	ErrCodeMeetingNotFound       = "MEETING_NOT_FOUND"
	ErrCodeNotificationNotFound  = "NOTIFICATION_NOT_FOUND"
	ErrCodeReportNotFound        = "REPORT_NOT_FOUND"
	ErrCodeSelfReport            = "SELF_REPORT"
)

// NewValidationError は入力値エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Kind:     KindValidation,
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
		Kind:     KindAuthentication,
	}
}

// NewInvalidCredentialsError はユーザー名またはパスワードの不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
		Kind:     KindAuthentication,
	}
}

// NewForbiddenError は操作権限がない場合のエラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "この操作を実行する権限がありません。",
		Kind:     KindAuthorization,
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
		Kind:     KindNotFound,
	}
}

// NewUsernameTakenError はユーザー名が既に使用されている場合のエラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
		Kind:     KindConflict,
	}
}

// NewSkillNotFoundError はスキルが見つからない場合のエラーを生成する。
func NewSkillNotFoundError(skillID string) *APIError {
	return &APIError{
		Code:     ErrCodeSkillNotFound,
		Message:  fmt.Sprintf("指定されたスキルが見つかりません: %s", skillID),
		Category: "skill",
		Action:   "スキルIDを確認してください。",
		Kind:     KindNotFound,
	}
}

// NewSkillRequestNotFoundError はスキルリクエストが見つからない場合のエラーを生成する。
func NewSkillRequestNotFoundError(requestID string) *APIError {
	return &APIError{
		Code:     ErrCodeSkillRequestNotFound,
		Message:  fmt.Sprintf("指定されたリクエストが見つかりません: %s", requestID),
		Category: "request",
		Action:   "リクエストIDを確認してください。",
		Kind:     KindNotFound,
	}
}

// NewDuplicateSkillRequestError は同じスキルへのリクエストが既に存在する場合のエラーを生成する。
func NewDuplicateSkillRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSkillRequest,
		Message:  "このスキルには既にリクエストを送信しています。",
		Category: "request",
		Action:   "ダッシュボードでリクエストの状態を確認してください。",
		Kind:     KindConflict,
	}
}

// NewOwnSkillRequestError は自分のスキルにリクエストしようとした場合のエラーを生成する。
func NewOwnSkillRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnSkillRequest,
		Message:  "自分のスキルにはリクエストできません。",
		Category: "request",
		Action:   "他のユーザーのスキルを選択してください。",
		Kind:     KindConflict,
	}
}

// NewInvalidTransitionError は現在の状態から指定操作ができない場合のエラーを生成する。
func NewInvalidTransitionError(operation string, current SkillRequestStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("現在の状態（%s）では %s できません。", current, operation),
		Category: "request",
		Action:   "リクエストの状態を確認してください。",
		Kind:     KindInvalidTransition,
	}
}

// NewReviewNotFoundError はレビューが見つからない場合のエラーを生成する。
func NewReviewNotFoundError(reviewID string) *APIError {
	return &APIError{
		Code:     ErrCodeReviewNotFound,
		Message:  fmt.Sprintf("指定されたレビューが見つかりません: %s", reviewID),
		Category: "skill",
		Action:   "レビューIDを確認してください。",
		Kind:     KindNotFound,
	}
}

// NewMessageNotFoundError は返信先メッセージが見つからない場合のエラーを生成する。
func NewMessageNotFoundError(messageID string) *APIError {
	return &APIError{
		Code:     ErrCodeMessageNotFound,
		Message:  fmt.Sprintf("指定されたメッセージが見つかりません: %s", messageID),
		Category: "message",
		Action:   "メッセージIDを確認してください。",
		Kind:     KindNotFound,
	}
}

// NewMeetingNotFoundError はミーティングが見つからない場合のエラーを生成する。
func NewMeetingNotFoundError(meetingID string) *APIError {
	return &APIError{
		Code:     ErrCodeMeetingNotFound,
		Message:  fmt.Sprintf("指定されたミーティングが見つかりません: %s", meetingID),
		Category: "meeting",
		Action:   "ミーティングIDを確認してください。",
		Kind:     KindNotFound,
	}
}

// NewNotificationNotFoundError は通知が見つからない場合のエラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "notification",
		Action:   "通知IDを確認してください。",
		Kind:     KindNotFound,
	}
}

// NewReportNotFoundError は通報が見つからない場合のエラーを生成する。
func NewReportNotFoundError(reportID string) *APIError {
	return &APIError{
		Code:     ErrCodeReportNotFound,
		Message:  fmt.Sprintf("指定された通報が見つかりません: %s", reportID),
		Category: "report",
		Action:   "通報IDを確認してください。",
		Kind:     KindNotFound,
	}
}

// NewSelfReportError は自分自身を通報しようとした場合のエラーを生成する。
func NewSelfReportError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfReport,
		Message:  "自分自身を通報することはできません。",
		Category: "report",
		Action:   "通報対象のユーザー名を確認してください。",
		Kind:     KindValidation,
	}
}
