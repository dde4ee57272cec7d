// Package user はユーザー登録・認証・プロフィール管理を提供する。
//
// このサービスがシステム内で唯一JWTを発行・検証する。gatewayサービスは
// トークンの検証を/meエンドポイントへの呼び出しとして委譲してくる。
package user
