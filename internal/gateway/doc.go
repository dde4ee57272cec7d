// Package gateway は外部クライアント向けのHTTP APIを提供する。
//
// 投稿操作はpostサービスへのRPCに変換し、認証はuserサービスへの
// トークン検証委譲で行う。ユーザー管理系のエンドポイントは
// userサービスへそのまま転送する。
package gateway
