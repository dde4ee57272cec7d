// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWT認証トークンの検証、パニックリカバリ、CORS設定、リクエストID付与、
// メトリクス収集、レート制限など、gatewayサービスとuserサービスで
// 共通して使用するミドルウェアを含む。
package middleware
