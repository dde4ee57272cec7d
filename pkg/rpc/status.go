package rpc

import "fmt"

// Code はRPCの結果を表すステータスコード。
type Code uint32

const (
	// CodeOK は呼び出しが成功したことを表す。
	CodeOK Code = iota
	// CodeInvalidArgument はリクエストのフィールドが欠落または不正であることを表す。
	CodeInvalidArgument
	// CodeNotFound は対象のリソースが存在しないことを表す。
	CodeNotFound
	// CodePermissionDenied は呼び出し元に操作の権限がないことを表す。
	CodePermissionDenied
	// CodeUnavailable はサービスに到達できない（接続失敗・タイムアウト）ことを表す。
	CodeUnavailable
	// CodeInternal はサービス内部の予期しないエラーを表す。
	CodeInternal
)

// String はステータスコードの文字列表現を返す。
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodeUnavailable:
		return "UNAVAILABLE"
	case CodeInternal:
		return "INTERNAL"
	default:
		return fmt.Sprintf("CODE(%d)", uint32(c))
	}
}

// Error はステータスコードと詳細メッセージを持つRPCエラー。
// サービス側のハンドラが返し、クライアント側で復元される。
type Error struct {
	// Code はRPCステータスコード。
	Code Code
	// Detail は人間が読める詳細メッセージ。
	Detail string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("rpc: %s: %s", e.Code, e.Detail)
}

// Errorf は書式化した詳細メッセージを持つRPCエラーを生成する。
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf はエラーからRPCステータスコードを取り出す。
// *Error以外のエラーはCodeInternalとして扱い、nilはCodeOKを返す。
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeInternal
}

// DetailOf はエラーから詳細メッセージを取り出す。
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Detail
	}
	return err.Error()
}
